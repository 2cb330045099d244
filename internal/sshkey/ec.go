// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/toeirei/keycore/internal/keytype"
)

var one = big.NewInt(1)

// decodePoint parses an uncompressed point and validates it as a public key
// on c.
func decodePoint(c keytype.Curve, b []byte) (x, y *big.Int, err error) {
	curve := c.Elliptic()
	if curve == nil {
		return nil, nil, fmt.Errorf("%w: unsupported curve", ErrInvalidPoint)
	}
	x, y = elliptic.Unmarshal(curve, b)
	if x == nil {
		return nil, nil, fmt.Errorf("%w: point not on curve %s", ErrInvalidPoint, c)
	}
	if err := validatePublic(c, x, y); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// encodePoint returns the uncompressed SEC1 encoding of (x, y).
func encodePoint(c keytype.Curve, x, y *big.Int) []byte {
	size := (c.Bits() + 7) / 8
	out := make([]byte, 1+2*size)
	out[0] = 4
	x.FillBytes(out[1 : 1+size])
	y.FillBytes(out[1+size:])
	return out
}

// validatePublic rejects degenerate points: each coordinate must be longer
// than half the group order in bits and smaller than order-1. Curve
// membership and the point at infinity are handled by elliptic.Unmarshal;
// the NIST curves have cofactor 1 so no subgroup check is needed.
func validatePublic(c keytype.Curve, x, y *big.Int) error {
	curve := c.Elliptic()
	if curve == nil {
		return fmt.Errorf("%w: unsupported curve", ErrInvalidPoint)
	}
	if !curve.IsOnCurve(x, y) {
		return fmt.Errorf("%w: point not on curve %s", ErrInvalidPoint, c)
	}
	order := curve.Params().N
	half := order.BitLen() / 2
	if x.BitLen() <= half || y.BitLen() <= half {
		return fmt.Errorf("%w: public key coordinates too small", ErrInvalidPoint)
	}
	lim := new(big.Int).Sub(order, one)
	if x.Cmp(lim) >= 0 || y.Cmp(lim) >= 0 {
		return fmt.Errorf("%w: public key coordinates out of range", ErrInvalidPoint)
	}
	return nil
}

// validatePrivate applies the same size rules to the private scalar.
func validatePrivate(c keytype.Curve, d *big.Int) error {
	curve := c.Elliptic()
	if curve == nil || d == nil {
		return ErrInvalidScalar
	}
	order := curve.Params().N
	if d.BitLen() <= order.BitLen()/2 {
		return fmt.Errorf("%w: private scalar too small", ErrInvalidScalar)
	}
	if d.Cmp(new(big.Int).Sub(order, one)) >= 0 {
		return fmt.Errorf("%w: private scalar out of range", ErrInvalidScalar)
	}
	return nil
}
