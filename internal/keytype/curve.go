// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package keytype

import "crypto/elliptic"

// Curve identifies one of the NIST curves usable with ECDSA keys.
type Curve int

const (
	CurveNone Curve = iota
	CurveP256
	CurveP384
	CurveP521
)

var curves = []struct {
	curve Curve
	ident string
	bits  int
}{
	{CurveP256, "nistp256", 256},
	{CurveP384, "nistp384", 384},
	{CurveP521, "nistp521", 521},
}

// Name returns the SSH curve identifier ("nistp256" ...), or "" for
// CurveNone.
func (c Curve) Name() string {
	for _, e := range curves {
		if e.curve == c {
			return e.ident
		}
	}
	return ""
}

// Bits returns the curve size, or 0 for an unsupported curve.
func (c Curve) Bits() int {
	for _, e := range curves {
		if e.curve == c {
			return e.bits
		}
	}
	return 0
}

// Elliptic returns the standard library curve implementation.
func (c Curve) Elliptic() elliptic.Curve {
	switch c {
	case CurveP256:
		return elliptic.P256()
	case CurveP384:
		return elliptic.P384()
	case CurveP521:
		return elliptic.P521()
	default:
		return nil
	}
}

func (c Curve) String() string {
	if n := c.Name(); n != "" {
		return n
	}
	return "none"
}

// CurveFromIdentifier maps "nistp256" and friends to a Curve.
func CurveFromIdentifier(ident string) Curve {
	for _, e := range curves {
		if e.ident == ident {
			return e.curve
		}
	}
	return CurveNone
}

// CurveFromBits maps a key size to a Curve, or CurveNone.
func CurveFromBits(bits int) Curve {
	for _, e := range curves {
		if e.bits == bits {
			return e.curve
		}
	}
	return CurveNone
}

// CurveFromElliptic identifies a standard library curve.
func CurveFromElliptic(c elliptic.Curve) Curve {
	if c == nil {
		return CurveNone
	}
	switch c.Params().Name {
	case "P-256":
		return CurveP256
	case "P-384":
		return CurveP384
	case "P-521":
		return CurveP521
	default:
		return CurveNone
	}
}
