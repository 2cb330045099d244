// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/logging"
)

// ReadText parses a single-line public key. RSA1 lines are
// "<bits> <exponent> <modulus>" in decimal; all other keys are
// "<wire-name> <base64 blob>". want restricts the accepted type; pass
// keytype.Unspecified to accept any protocol 2 key. The remainder of the
// line after the key (usually a comment) is returned with leading
// whitespace removed.
func ReadText(line string, want keytype.Type) (*Key, string, error) {
	line = strings.TrimRight(strings.TrimLeft(line, " \t"), "\r\n")
	if want == keytype.RSA1 {
		return readRSA1(line)
	}

	name, rest, ok := cutField(line)
	if !ok {
		return nil, "", fmt.Errorf("%w: missing whitespace", ErrInvalidFormat)
	}
	t := keytype.FromName(name)
	if t == keytype.Unspecified || t == keytype.RSA1 {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	var curve keytype.Curve
	if keytype.Plain(t) == keytype.ECDSA {
		if curve = keytype.CurveFromName(name); curve == keytype.CurveNone {
			return nil, "", fmt.Errorf("%w: invalid curve in %q", ErrCurveMismatch, name)
		}
	}
	if want != keytype.Unspecified && want != t {
		return nil, "", fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, keytype.ShortName(want), keytype.ShortName(t))
	}
	b64, rest, _ := cutField(rest)
	if b64 == "" {
		return nil, "", fmt.Errorf("%w: missing key data", ErrInvalidFormat)
	}
	blob, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: base64: %v", ErrInvalidFormat, err)
	}
	k, err := DecodeBlob(blob, true)
	if err != nil {
		return nil, "", err
	}
	if k.Type != t {
		k.Destroy()
		return nil, "", fmt.Errorf("%w: encoding error", ErrTypeMismatch)
	}
	if curve != keytype.CurveNone && k.Curve() != curve {
		k.Destroy()
		return nil, "", fmt.Errorf("%w: EC curve mismatch", ErrCurveMismatch)
	}
	return k, rest, nil
}

func readRSA1(line string) (*Key, string, error) {
	bitsField, rest, _ := cutField(line)
	bits, err := strconv.Atoi(bitsField)
	if err != nil || bits <= 0 {
		return nil, "", fmt.Errorf("%w: rsa1 bits %q", ErrInvalidFormat, bitsField)
	}
	eField, rest, _ := cutField(rest)
	nField, rest, _ := cutField(rest)
	e, ok := new(big.Int).SetString(eField, 10)
	if !ok || e.Sign() <= 0 {
		return nil, "", fmt.Errorf("%w: rsa1 exponent", ErrInvalidFormat)
	}
	n, ok := new(big.Int).SetString(nField, 10)
	if !ok || n.Sign() <= 0 {
		return nil, "", fmt.Errorf("%w: rsa1 modulus", ErrInvalidFormat)
	}
	if n.BitLen() != bits {
		return nil, "", fmt.Errorf("%w: bits %d != %d", ErrTypeMismatch, n.BitLen(), bits)
	}
	k := New(keytype.RSA1)
	k.RSA.E = e
	k.RSA.N = n
	return k, rest, nil
}

// cutField splits off the first space or tab separated field. ok is false
// when s has no separator.
func cutField(s string) (field, rest string, ok bool) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	return s[:i], strings.TrimLeft(s[i+1:], " \t"), true
}

// MarshalText returns the single-line encoding of k without a comment.
func MarshalText(k *Key) (string, error) {
	if k == nil {
		return "", fmt.Errorf("%w: nil key", ErrIncompleteKey)
	}
	if k.Type == keytype.RSA1 {
		if k.RSA == nil || k.RSA.N == nil || k.RSA.E == nil || k.RSA.N.Sign() == 0 {
			return "", fmt.Errorf("%w: missing rsa1 material", ErrIncompleteKey)
		}
		return fmt.Sprintf("%d %s %s", k.RSA.N.BitLen(), k.RSA.E.Text(10), k.RSA.N.Text(10)), nil
	}
	blob, err := EncodeBlob(k, false)
	if err != nil {
		logging.Debugf("sshkey: key_write: %v", err)
		return "", err
	}
	return k.Name() + " " + base64.StdEncoding.EncodeToString(blob), nil
}

// WriteText writes the single-line encoding of k to w. Incomplete keys
// produce an error and nothing is written.
func WriteText(w io.Writer, k *Key) error {
	s, err := MarshalText(k)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}
