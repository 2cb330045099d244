// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // ssh-dss keys are still part of the key format
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"math"
	"math/big"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/security"
	"golang.org/x/crypto/ssh"
)

// CryptoPublicKey returns k's public half as a standard library key.
func (k *Key) CryptoPublicKey() (crypto.PublicKey, error) {
	switch keytype.Plain(k.Type) {
	case keytype.RSA1, keytype.RSA:
		if k.RSA == nil || k.RSA.N == nil || k.RSA.E == nil {
			return nil, fmt.Errorf("%w: missing rsa material", ErrIncompleteKey)
		}
		e, err := rsaExponent(k.RSA.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: cloneInt(k.RSA.N), E: e}, nil
	case keytype.DSA:
		d := k.DSA
		if d == nil || d.P == nil || d.Q == nil || d.G == nil || d.Y == nil {
			return nil, fmt.Errorf("%w: missing dsa material", ErrIncompleteKey)
		}
		return &dsa.PublicKey{
			Parameters: dsa.Parameters{P: cloneInt(d.P), Q: cloneInt(d.Q), G: cloneInt(d.G)},
			Y:          cloneInt(d.Y),
		}, nil
	case keytype.ECDSA:
		e := k.ECDSA
		if e == nil || e.X == nil || e.Y == nil || e.Curve.Elliptic() == nil {
			return nil, fmt.Errorf("%w: missing ecdsa material", ErrIncompleteKey)
		}
		return &ecdsa.PublicKey{Curve: e.Curve.Elliptic(), X: cloneInt(e.X), Y: cloneInt(e.Y)}, nil
	case keytype.Ed25519:
		if k.Ed25519 == nil || len(k.Ed25519.Public) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: missing ed25519 material", ErrIncompleteKey)
		}
		return ed25519.PublicKey(cloneBytes(k.Ed25519.Public)), nil
	default:
		panic(badType("CryptoPublicKey", k.Type))
	}
}

// CryptoPrivateKey returns k's private half in the form accepted by
// ssh.NewSignerFromKey and ssh.MarshalPrivateKey.
func (k *Key) CryptoPrivateKey() (crypto.PrivateKey, error) {
	if !k.hasPrivateMaterial() {
		return nil, ErrNotPrivate
	}
	switch keytype.Plain(k.Type) {
	case keytype.RSA1, keytype.RSA:
		r := k.RSA
		if r.P == nil || r.Q == nil || r.P.Sign() == 0 || r.Q.Sign() == 0 {
			return nil, fmt.Errorf("%w: missing rsa primes", ErrIncompleteKey)
		}
		e, err := rsaExponent(r.E)
		if err != nil {
			return nil, err
		}
		priv := &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: cloneInt(r.N), E: e},
			D:         cloneInt(r.D),
			Primes:    []*big.Int{cloneInt(r.P), cloneInt(r.Q)},
		}
		priv.Precompute()
		return priv, nil
	case keytype.DSA:
		d := k.DSA
		return &dsa.PrivateKey{
			PublicKey: dsa.PublicKey{
				Parameters: dsa.Parameters{P: cloneInt(d.P), Q: cloneInt(d.Q), G: cloneInt(d.G)},
				Y:          cloneInt(d.Y),
			},
			X: cloneInt(d.X),
		}, nil
	case keytype.ECDSA:
		e := k.ECDSA
		return &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{Curve: e.Curve.Elliptic(), X: cloneInt(e.X), Y: cloneInt(e.Y)},
			D:         cloneInt(e.D),
		}, nil
	case keytype.Ed25519:
		return ed25519.PrivateKey(cloneBytes(k.Ed25519.Private)), nil
	default:
		panic(badType("CryptoPrivateKey", k.Type))
	}
}

// wipeCryptoKey zeroes the secret scalars of a standard library private
// key. State the crypto packages derive internally is out of reach.
func wipeCryptoKey(priv crypto.PrivateKey) {
	switch p := priv.(type) {
	case *rsa.PrivateKey:
		security.WipeInt(p.D)
		for _, prime := range p.Primes {
			security.WipeInt(prime)
		}
		security.WipeInt(p.Precomputed.Dp)
		security.WipeInt(p.Precomputed.Dq)
		security.WipeInt(p.Precomputed.Qinv)
	case *dsa.PrivateKey:
		security.WipeInt(p.X)
	case *ecdsa.PrivateKey:
		security.WipeInt(p.D)
	case ed25519.PrivateKey:
		security.Wipe(p)
	case *ed25519.PrivateKey:
		if p != nil {
			security.Wipe(*p)
		}
	}
}

func rsaExponent(e *big.Int) (int, error) {
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > math.MaxInt32 {
		return 0, fmt.Errorf("%w: unsupported rsa exponent", ErrInvalidFormat)
	}
	return int(e.Int64()), nil
}

// FromCrypto builds a private Key from a standard library private key as
// returned by ssh.ParseRawPrivateKey or the crypto generate functions.
func FromCrypto(priv crypto.PrivateKey) (*Key, error) {
	switch p := priv.(type) {
	case *rsa.PrivateKey:
		if len(p.Primes) != 2 {
			return nil, fmt.Errorf("%w: multi-prime rsa", ErrUnsupported)
		}
		if p.Precomputed.Qinv == nil {
			p.Precompute()
		}
		k := NewPrivate(keytype.RSA)
		r := k.RSA
		r.N.Set(p.N)
		r.E.SetInt64(int64(p.E))
		r.D.Set(p.D)
		r.P.Set(p.Primes[0])
		r.Q.Set(p.Primes[1])
		r.Iqmp.Set(p.Precomputed.Qinv)
		r.Dmp1.Set(p.Precomputed.Dp)
		r.Dmq1.Set(p.Precomputed.Dq)
		return k, nil
	case *dsa.PrivateKey:
		k := NewPrivate(keytype.DSA)
		d := k.DSA
		d.P.Set(p.P)
		d.Q.Set(p.Q)
		d.G.Set(p.G)
		d.Y.Set(p.Y)
		d.X.Set(p.X)
		return k, nil
	case *ecdsa.PrivateKey:
		c := keytype.CurveFromElliptic(p.Curve)
		if c == keytype.CurveNone {
			return nil, fmt.Errorf("%w: curve %s", ErrUnsupported, p.Curve.Params().Name)
		}
		k := New(keytype.ECDSA)
		k.ECDSA = &ECDSAKey{Curve: c, X: cloneInt(p.X), Y: cloneInt(p.Y), D: cloneInt(p.D)}
		if err := validatePublic(c, p.X, p.Y); err != nil {
			return nil, err
		}
		if err := validatePrivate(c, p.D); err != nil {
			return nil, err
		}
		return k, nil
	case ed25519.PrivateKey:
		return fromEd25519(p)
	case *ed25519.PrivateKey:
		return fromEd25519(*p)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, priv)
	}
}

func fromEd25519(p ed25519.PrivateKey) (*Key, error) {
	if len(p) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key length %d", ErrInvalidFormat, len(p))
	}
	k := New(keytype.Ed25519)
	k.Ed25519 = &Ed25519Key{
		Public:  ed25519.PublicKey(cloneBytes(p[ed25519.SeedSize:])),
		Private: ed25519.PrivateKey(cloneBytes(p)),
	}
	return k, nil
}

// SSHPublicKey converts k, certificates included, to an x/crypto/ssh
// public key.
func (k *Key) SSHPublicKey() (ssh.PublicKey, error) {
	blob, err := EncodeBlob(k, false)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePublicKey(blob)
}

// FromSSHPublicKey converts an x/crypto/ssh public key or certificate.
func FromSSHPublicKey(pub ssh.PublicKey) (*Key, error) {
	return DecodeBlob(pub.Marshal(), true)
}
