// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/security"
	"github.com/toeirei/keycore/internal/wire"
)

// MarshalPrivate serialises k including its private material in the
// at-rest blob format. Certificate keys store the certificate blob followed
// by the private fields only. The caller owns the returned Secret and
// should Zero it when done.
func MarshalPrivate(k *Key) (security.Secret, error) {
	if !k.hasPrivateMaterial() {
		return nil, ErrNotPrivate
	}
	w := wire.NewWriter()
	w.CString(k.Name())
	if keytype.IsCert(k.Type) {
		if k.Cert == nil || len(k.Cert.Blob) == 0 {
			return nil, fmt.Errorf("%w: no cert/certblob", ErrIncompleteKey)
		}
		w.String(k.Cert.Blob)
	}
	cert := keytype.IsCert(k.Type)
	switch keytype.Plain(k.Type) {
	case keytype.RSA:
		r := k.RSA
		if !cert {
			w.MPInt(r.N)
			w.MPInt(r.E)
		}
		w.MPInt(r.D)
		w.MPInt(r.Iqmp)
		w.MPInt(r.P)
		w.MPInt(r.Q)
	case keytype.DSA:
		d := k.DSA
		if !cert {
			w.MPInt(d.P)
			w.MPInt(d.Q)
			w.MPInt(d.G)
			w.MPInt(d.Y)
		}
		w.MPInt(d.X)
	case keytype.ECDSA:
		e := k.ECDSA
		if !cert {
			w.CString(e.Curve.Name())
			w.String(encodePoint(e.Curve, e.X, e.Y))
		}
		w.MPInt(e.D)
	case keytype.Ed25519:
		w.String(k.Ed25519.Public)
		w.String(k.Ed25519.Private)
	default:
		return nil, fmt.Errorf("%w: %s has no private blob encoding", ErrUnsupported, k.ShortName())
	}
	buf, err := w.Bytes()
	if err != nil {
		return nil, err
	}
	out := security.FromBytes(buf)
	security.Wipe(buf)
	return out, nil
}

// ParsePrivate decodes a blob produced by MarshalPrivate. Any structural
// or consistency failure destroys the partially built key and returns an
// error.
func ParsePrivate(blob []byte) (*Key, error) {
	k, err := parsePrivate(wire.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("sshkey: parse private key: %w", err)
	}
	return k, nil
}

func parsePrivate(r *wire.Reader) (k *Key, err error) {
	defer func() {
		if err != nil && k != nil {
			k.Destroy()
			k = nil
		}
	}()

	name, err := r.CString()
	if err != nil {
		return nil, err
	}
	t := keytype.FromWireName(name)
	if t == keytype.Unspecified {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	if keytype.IsCert(t) {
		cert, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("certificate: %w", err)
		}
		if k, err = DecodeBlob(cert, true); err != nil {
			return nil, err
		}
		if k.Type != t {
			return k, fmt.Errorf("%w: %s certificate under %s name", ErrTypeMismatch, k.ShortName(), name)
		}
		k.AddPrivate()
	} else {
		k = NewPrivate(t)
	}

	mp := func(dst **big.Int, field string) error {
		v, err := r.MPInt()
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*dst = v
		return nil
	}
	cert := keytype.IsCert(t)

	switch keytype.Plain(t) {
	case keytype.RSA:
		rk := k.RSA
		if !cert {
			if err = mp(&rk.N, "rsa n"); err != nil {
				return k, err
			}
			if err = mp(&rk.E, "rsa e"); err != nil {
				return k, err
			}
		}
		for _, f := range []struct {
			dst  **big.Int
			name string
		}{{&rk.D, "rsa d"}, {&rk.Iqmp, "rsa iqmp"}, {&rk.P, "rsa p"}, {&rk.Q, "rsa q"}} {
			if err = mp(f.dst, f.name); err != nil {
				return k, err
			}
		}
		if err = completeRSA(k); err != nil {
			return k, err
		}
	case keytype.DSA:
		dk := k.DSA
		if !cert {
			for _, f := range []struct {
				dst  **big.Int
				name string
			}{{&dk.P, "dsa p"}, {&dk.Q, "dsa q"}, {&dk.G, "dsa g"}, {&dk.Y, "dsa y"}} {
				if err = mp(f.dst, f.name); err != nil {
					return k, err
				}
			}
		}
		if err = mp(&dk.X, "dsa x"); err != nil {
			return k, err
		}
	case keytype.ECDSA:
		if !cert {
			c := keytype.CurveFromName(name)
			ident, err := r.CString()
			if err != nil {
				return k, fmt.Errorf("ecdsa curve: %w", err)
			}
			if keytype.CurveFromIdentifier(ident) != c {
				return k, fmt.Errorf("%w: curve names mismatch", ErrCurveMismatch)
			}
			pt, err := r.ECPoint()
			if err != nil {
				return k, fmt.Errorf("ecdsa point: %w", err)
			}
			x, y, err := decodePoint(c, pt)
			if err != nil {
				return k, err
			}
			k.ECDSA = &ECDSAKey{Curve: c, X: x, Y: y}
		}
		if err = mp(&k.ECDSA.D, "ecdsa scalar"); err != nil {
			return k, err
		}
		if err = validatePublic(k.ECDSA.Curve, k.ECDSA.X, k.ECDSA.Y); err != nil {
			return k, err
		}
		if err = validatePrivate(k.ECDSA.Curve, k.ECDSA.D); err != nil {
			return k, err
		}
	case keytype.Ed25519:
		pk, err := r.String()
		if err != nil {
			return k, fmt.Errorf("ed25519 pk: %w", err)
		}
		sk, err := r.String()
		if err != nil {
			return k, fmt.Errorf("ed25519 sk: %w", err)
		}
		if len(pk) != ed25519.PublicKeySize {
			return k, fmt.Errorf("%w: ed25519 pklen %d != %d", ErrInvalidFormat, len(pk), ed25519.PublicKeySize)
		}
		if len(sk) != ed25519.PrivateKeySize {
			return k, fmt.Errorf("%w: ed25519 sklen %d != %d", ErrInvalidFormat, len(sk), ed25519.PrivateKeySize)
		}
		if cert && k.Ed25519 != nil && !ed25519.PublicKey(pk).Equal(k.Ed25519.Public) {
			return k, fmt.Errorf("%w: ed25519 key does not match certificate", ErrTypeMismatch)
		}
		k.Ed25519 = &Ed25519Key{
			Public:  ed25519.PublicKey(cloneBytes(pk)),
			Private: ed25519.PrivateKey(cloneBytes(sk)),
		}
	}
	if !r.Empty() {
		return k, fmt.Errorf("%w: %d bytes", ErrTrailingData, r.Len())
	}
	return k, nil
}

// completeRSA derives the CRT exponents and validates the key. Go's RSA
// implementation blinds private operations itself.
func completeRSA(k *Key) error {
	rk := k.RSA
	e, err := rsaExponent(rk.E)
	if err != nil {
		return err
	}
	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: cloneInt(rk.N), E: e},
		D:         cloneInt(rk.D),
		Primes:    []*big.Int{cloneInt(rk.P), cloneInt(rk.Q)},
	}
	defer wipeCryptoKey(priv)
	if err := priv.Validate(); err != nil {
		return fmt.Errorf("%w: rsa: %v", ErrInvalidFormat, err)
	}
	priv.Precompute()
	rk.Dmp1 = cloneInt(priv.Precomputed.Dp)
	rk.Dmq1 = cloneInt(priv.Precomputed.Dq)
	if rk.Iqmp.Cmp(priv.Precomputed.Qinv) != 0 {
		return fmt.Errorf("%w: rsa iqmp inconsistent", ErrInvalidFormat)
	}
	return nil
}
