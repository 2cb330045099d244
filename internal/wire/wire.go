// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package wire reads and writes the SSH binary encoding (RFC 4251 §5):
// big-endian integers, uint32 length-prefixed strings and mpints. It is a
// thin layer over golang.org/x/crypto/cryptobyte adding the SSH specific
// bounds checks.
package wire // import "github.com/toeirei/keycore/internal/wire"

import (
	"bytes"
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
)

const (
	// MaxString bounds any single length-prefixed field.
	MaxString = 256 * 1024
	// MaxMPIntBytes bounds the encoded size of a single mpint.
	MaxMPIntBytes = 8 * 1024
	// MaxECPoint bounds an encoded EC point (uncompressed nistp521).
	MaxECPoint = 2*((521+7)/8) + 1
)

var (
	ErrShort       = errors.New("wire: incomplete message")
	ErrTooLong     = errors.New("wire: string too long")
	ErrNegative    = errors.New("wire: negative numbers not supported")
	ErrMPIntLarge  = errors.New("wire: bignum too large")
	ErrEmbeddedNUL = errors.New("wire: string contains embedded NUL")
	ErrPoint       = errors.New("wire: invalid EC point encoding")
)

// Reader consumes fields from a byte slice. Returned byte slices alias the
// input.
type Reader struct {
	s cryptobyte.String
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{s: cryptobyte.String(b)}
}

// Len reports the number of unread bytes.
func (r *Reader) Len() int { return len(r.s) }

// Empty reports whether all input has been consumed.
func (r *Reader) Empty() bool { return r.s.Empty() }

func (r *Reader) Uint32() (uint32, error) {
	var v uint32
	if !r.s.ReadUint32(&v) {
		return 0, ErrShort
	}
	return v, nil
}

func (r *Reader) Uint64() (uint64, error) {
	var v uint64
	if !r.s.ReadUint64(&v) {
		return 0, ErrShort
	}
	return v, nil
}

// String reads a uint32 length-prefixed byte string.
func (r *Reader) String() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if n > MaxString {
		return nil, ErrTooLong
	}
	var b []byte
	if !r.s.ReadBytes(&b, int(n)) {
		return nil, ErrShort
	}
	return b, nil
}

// CString reads a string that must not contain NUL bytes.
func (r *Reader) CString() (string, error) {
	b, err := r.String()
	if err != nil {
		return "", err
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", ErrEmbeddedNUL
	}
	return string(b), nil
}

// Skip reads and discards one length-prefixed string.
func (r *Reader) Skip() error {
	_, err := r.String()
	return err
}

// MPInt reads a non-negative multiple precision integer.
func (r *Reader) MPInt() (*big.Int, error) {
	b, err := r.String()
	if err != nil {
		return nil, err
	}
	if len(b) > MaxMPIntBytes {
		return nil, ErrMPIntLarge
	}
	if len(b) > 0 && b[0]&0x80 != 0 {
		return nil, ErrNegative
	}
	return new(big.Int).SetBytes(b), nil
}

// ECPoint reads an uncompressed EC point encoding. Curve membership is left
// to the caller.
func (r *Reader) ECPoint() ([]byte, error) {
	b, err := r.String()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || len(b) > MaxECPoint || b[0] != 0x04 {
		return nil, ErrPoint
	}
	return b, nil
}

// Writer accumulates fields. The first error sticks and is reported by Bytes.
type Writer struct {
	b *cryptobyte.Builder
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{b: cryptobyte.NewBuilder(nil)}
}

func (w *Writer) Uint32(v uint32) { w.b.AddUint32(v) }

func (w *Writer) Uint64(v uint64) { w.b.AddUint64(v) }

// String writes a uint32 length-prefixed byte string.
func (w *Writer) String(b []byte) {
	w.b.AddUint32(uint32(len(b)))
	w.b.AddBytes(b)
}

// CString writes s as a length-prefixed string.
func (w *Writer) CString(s string) { w.String([]byte(s)) }

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) { w.b.AddBytes(b) }

// MPInt writes x in minimal two's complement form, prefixing a zero byte
// when the high bit of the magnitude is set. Zero encodes as an empty string.
func (w *Writer) MPInt(x *big.Int) {
	if x == nil || x.Sign() == 0 {
		w.String(nil)
		return
	}
	if x.Sign() < 0 {
		w.b.SetError(ErrNegative)
		return
	}
	mag := x.Bytes()
	if mag[0]&0x80 != 0 {
		w.b.AddUint32(uint32(len(mag) + 1))
		w.b.AddUint8(0)
		w.b.AddBytes(mag)
		return
	}
	w.String(mag)
}

// Bytes returns the accumulated encoding. The slice is the Writer's own
// buffer, so wiping it wipes the Writer.
func (w *Writer) Bytes() ([]byte, error) {
	return w.b.Bytes()
}

// MPIntBytes returns the SSH mpint encoding of x including the length prefix.
func MPIntBytes(x *big.Int) []byte {
	w := NewWriter()
	w.MPInt(x)
	b, err := w.Bytes()
	if err != nil {
		return nil
	}
	return b
}
