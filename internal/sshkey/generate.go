// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/dsa" //nolint:staticcheck // ssh-dss keys are still part of the key format
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/toeirei/keycore/internal/keytype"
)

// MinRSABits is the smallest RSA modulus Generate accepts.
const MinRSABits = 1024

// DefaultBits returns the key size used when the caller does not pick one.
func DefaultBits(t keytype.Type) int {
	switch t {
	case keytype.RSA, keytype.RSA1:
		return 3072
	case keytype.DSA:
		return 1024
	case keytype.ECDSA:
		return 256
	case keytype.Ed25519:
		return 256
	default:
		return 0
	}
}

// Generate creates a new private key. bits selects the RSA modulus size or
// the ECDSA curve; DSA keys are always 1024 bits and Ed25519 ignores bits.
// Certificate types cannot be generated; create a plain key and Certify it.
func Generate(t keytype.Type, bits int) (*Key, error) {
	switch t {
	case keytype.RSA, keytype.RSA1:
		if bits < MinRSABits {
			return nil, fmt.Errorf("%w: rsa key size %d", ErrUnsupported, bits)
		}
		priv, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, fmt.Errorf("sshkey: generate rsa key: %w", err)
		}
		defer wipeCryptoKey(priv)
		k, err := FromCrypto(priv)
		if err != nil {
			return nil, err
		}
		k.Type = t
		return k, nil
	case keytype.DSA:
		if bits != 1024 {
			return nil, fmt.Errorf("%w: dsa key size %d", ErrUnsupported, bits)
		}
		priv := new(dsa.PrivateKey)
		defer wipeCryptoKey(priv)
		if err := dsa.GenerateParameters(&priv.Parameters, rand.Reader, dsa.L1024N160); err != nil {
			return nil, fmt.Errorf("sshkey: generate dsa parameters: %w", err)
		}
		if err := dsa.GenerateKey(priv, rand.Reader); err != nil {
			return nil, fmt.Errorf("sshkey: generate dsa key: %w", err)
		}
		return FromCrypto(priv)
	case keytype.ECDSA:
		c := keytype.CurveFromBits(bits)
		if c == keytype.CurveNone {
			return nil, fmt.Errorf("%w: ecdsa key size %d", ErrUnsupported, bits)
		}
		for {
			priv, err := ecdsa.GenerateKey(c.Elliptic(), rand.Reader)
			if err != nil {
				return nil, fmt.Errorf("sshkey: generate ecdsa key: %w", err)
			}
			k, err := FromCrypto(priv)
			wipeCryptoKey(priv)
			if err == nil {
				return k, nil
			}
			// Scalars or points outside the accepted range are redrawn.
		}
	case keytype.Ed25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("sshkey: generate ed25519 key: %w", err)
		}
		defer wipeCryptoKey(priv)
		return FromCrypto(priv)
	default:
		return nil, fmt.Errorf("%w: cannot generate %s keys", ErrUnsupported, keytype.ShortName(t))
	}
}
