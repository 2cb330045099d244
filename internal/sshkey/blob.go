// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/security"
	"github.com/toeirei/keycore/internal/wire"
)

// Decoder decodes public key and certificate blobs. When Strict is false a
// blob with bytes left after a complete parse is accepted with a warning;
// otherwise it is rejected with ErrTrailingData.
type Decoder struct {
	Strict bool
}

// DefaultDecoder is used by the package-level DecodeBlob.
var DefaultDecoder = &Decoder{Strict: true}

// DecodeBlob decodes blob with DefaultDecoder.
func DecodeBlob(blob []byte, allowCert bool) (*Key, error) {
	return DefaultDecoder.DecodeBlob(blob, allowCert)
}

// DecodeBlob parses an SSH public key blob. Certificate blobs are only
// accepted when allowCert is set; their signature is verified against the
// embedded CA key before the key is returned.
func (d *Decoder) DecodeBlob(blob []byte, allowCert bool) (*Key, error) {
	r := wire.NewReader(blob)
	name, err := r.CString()
	if err != nil {
		return nil, fmt.Errorf("sshkey: can't read key type: %w", err)
	}
	t := keytype.FromWireName(name)
	if t == keytype.Unspecified {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if !allowCert && keytype.IsCert(t) {
		return nil, ErrCertNotAllowed
	}
	if keytype.IsCert(t) && !keytype.IsLegacyCert(t) {
		if err := r.Skip(); err != nil {
			return nil, fmt.Errorf("sshkey: can't read certificate nonce: %w", err)
		}
	}
	k := New(t)
	if err := readPublic(r, k, name); err != nil {
		k.Destroy()
		return nil, err
	}
	if keytype.IsCert(t) {
		if err := d.parseCertificate(r, k, blob); err != nil {
			k.Destroy()
			return nil, fmt.Errorf("sshkey: can't parse cert data: %w", err)
		}
	}
	if n := r.Len(); n != 0 {
		if d.Strict {
			k.Destroy()
			return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, n)
		}
		logging.Warnf("sshkey: remaining bytes in key blob %d", n)
	}
	return k, nil
}

// readPublic reads the type-specific public fields into k.
func readPublic(r *wire.Reader, k *Key, name string) error {
	var err error
	switch keytype.Plain(k.Type) {
	case keytype.RSA:
		if k.RSA.E, err = r.MPInt(); err != nil {
			return fmt.Errorf("sshkey: can't read rsa exponent: %w", err)
		}
		if k.RSA.N, err = r.MPInt(); err != nil {
			return fmt.Errorf("sshkey: can't read rsa modulus: %w", err)
		}
	case keytype.DSA:
		if k.DSA.P, err = r.MPInt(); err != nil {
			return fmt.Errorf("sshkey: can't read dsa p: %w", err)
		}
		if k.DSA.Q, err = r.MPInt(); err != nil {
			return fmt.Errorf("sshkey: can't read dsa q: %w", err)
		}
		if k.DSA.G, err = r.MPInt(); err != nil {
			return fmt.Errorf("sshkey: can't read dsa g: %w", err)
		}
		if k.DSA.Y, err = r.MPInt(); err != nil {
			return fmt.Errorf("sshkey: can't read dsa public key: %w", err)
		}
	case keytype.ECDSA:
		c := keytype.CurveFromName(name)
		ident, err := r.CString()
		if err != nil {
			return fmt.Errorf("sshkey: can't read ecdsa curve: %w", err)
		}
		if keytype.CurveFromIdentifier(ident) != c || c == keytype.CurveNone {
			return fmt.Errorf("%w: %q for %s", ErrCurveMismatch, ident, name)
		}
		pt, err := r.ECPoint()
		if err != nil {
			return fmt.Errorf("sshkey: can't read ecdsa key point: %w", err)
		}
		x, y, err := decodePoint(c, pt)
		if err != nil {
			return err
		}
		k.ECDSA = &ECDSAKey{Curve: c, X: x, Y: y}
	case keytype.Ed25519:
		pk, err := r.String()
		if err != nil {
			return fmt.Errorf("sshkey: can't read ed25519 key: %w", err)
		}
		if len(pk) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: ed25519 len %d != %d", ErrInvalidFormat, len(pk), ed25519.PublicKeySize)
		}
		k.Ed25519 = &Ed25519Key{Public: ed25519.PublicKey(bytes.Clone(pk))}
	default:
		panic(badType("readPublic", k.Type))
	}
	return nil
}

// writePublic writes the type-specific public fields of k.
func writePublic(w *wire.Writer, k *Key) error {
	switch keytype.Plain(k.Type) {
	case keytype.RSA:
		if k.RSA == nil || k.RSA.N == nil || k.RSA.E == nil {
			return fmt.Errorf("%w: missing rsa material", ErrIncompleteKey)
		}
		w.MPInt(k.RSA.E)
		w.MPInt(k.RSA.N)
	case keytype.DSA:
		if k.DSA == nil || k.DSA.P == nil || k.DSA.Q == nil || k.DSA.G == nil || k.DSA.Y == nil {
			return fmt.Errorf("%w: missing dsa material", ErrIncompleteKey)
		}
		w.MPInt(k.DSA.P)
		w.MPInt(k.DSA.Q)
		w.MPInt(k.DSA.G)
		w.MPInt(k.DSA.Y)
	case keytype.ECDSA:
		e := k.ECDSA
		if e == nil || e.X == nil || e.Y == nil || e.Curve.Elliptic() == nil {
			return fmt.Errorf("%w: missing ecdsa material", ErrIncompleteKey)
		}
		w.CString(e.Curve.Name())
		w.String(encodePoint(e.Curve, e.X, e.Y))
	case keytype.Ed25519:
		if k.Ed25519 == nil || len(k.Ed25519.Public) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: missing ed25519 material", ErrIncompleteKey)
		}
		w.String(k.Ed25519.Public)
	default:
		return fmt.Errorf("%w: %s has no blob encoding", ErrUnsupported, k.ShortName())
	}
	return nil
}

// EncodeBlob returns the SSH wire encoding of k. Certificates are emitted
// verbatim from their signed blob unless forcePlain is set, in which case
// only the plain public key is serialised.
func EncodeBlob(k *Key, forcePlain bool) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil key", ErrIncompleteKey)
	}
	if keytype.IsCert(k.Type) && !forcePlain {
		if k.Cert == nil || len(k.Cert.Blob) == 0 {
			return nil, fmt.Errorf("%w: certificate has no blob", ErrIncompleteKey)
		}
		return bytes.Clone(k.Cert.Blob), nil
	}
	t := keytype.Plain(k.Type)
	if t == keytype.RSA1 {
		return nil, fmt.Errorf("%w: RSA1 keys have no blob encoding", ErrUnsupported)
	}
	w := wire.NewWriter()
	w.CString(keytype.WireName(t, k.Curve()))
	if err := writePublic(w, k); err != nil {
		return nil, err
	}
	buf, err := w.Bytes()
	if err != nil {
		return nil, err
	}
	out := bytes.Clone(buf)
	security.Wipe(buf)
	return out, nil
}
