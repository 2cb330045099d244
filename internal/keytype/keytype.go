// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package keytype // import "github.com/toeirei/keycore/internal/keytype"

import (
	"strings"

	"github.com/toeirei/keycore/internal/logging"
)

// Type identifies a key algorithm, optionally in its certified form.
type Type int

const (
	RSA1 Type = iota
	RSA
	DSA
	ECDSA
	Ed25519
	RSACert
	DSACert
	ECDSACert
	Ed25519Cert
	RSACertV00
	DSACertV00
	Unspecified
)

// UnknownName is returned by WireName when no registry row matches.
const UnknownName = "ssh-unknown"

type entry struct {
	name      string // wire name, empty for RSA1
	shortName string
	typ       Type
	curve     Curve
	cert      bool
}

// table is ordered: lookups return the first match, and AlgorithmList emits
// names in this order.
var table = []entry{
	{"", "RSA1", RSA1, CurveNone, false},
	{"ssh-rsa", "RSA", RSA, CurveNone, false},
	{"ssh-dss", "DSA", DSA, CurveNone, false},
	{"ssh-ed25519", "ED25519", Ed25519, CurveNone, false},
	{"ecdsa-sha2-nistp256", "ECDSA", ECDSA, CurveP256, false},
	{"ecdsa-sha2-nistp384", "ECDSA", ECDSA, CurveP384, false},
	{"ecdsa-sha2-nistp521", "ECDSA", ECDSA, CurveP521, false},
	{"ssh-rsa-cert-v01@openssh.com", "RSA-CERT", RSACert, CurveNone, true},
	{"ssh-dss-cert-v01@openssh.com", "DSA-CERT", DSACert, CurveNone, true},
	{"ecdsa-sha2-nistp256-cert-v01@openssh.com", "ECDSA-CERT", ECDSACert, CurveP256, true},
	{"ecdsa-sha2-nistp384-cert-v01@openssh.com", "ECDSA-CERT", ECDSACert, CurveP384, true},
	{"ecdsa-sha2-nistp521-cert-v01@openssh.com", "ECDSA-CERT", ECDSACert, CurveP521, true},
	{"ssh-rsa-cert-v00@openssh.com", "RSA-CERT-V00", RSACertV00, CurveNone, true},
	{"ssh-dss-cert-v00@openssh.com", "DSA-CERT-V00", DSACertV00, CurveNone, true},
	{"ssh-ed25519-cert-v01@openssh.com", "ED25519-CERT", Ed25519Cert, CurveNone, true},
}

// FromName resolves a wire name exactly, or a short name case-insensitively
// among the non-certificate types. It returns Unspecified when nothing
// matches; callers must check.
func FromName(name string) Type {
	for _, e := range table {
		if (e.name != "" && e.name == name) ||
			(!e.cert && strings.EqualFold(e.shortName, name)) {
			return e.typ
		}
	}
	logging.Debugf("keytype: unknown key type %q", name)
	return Unspecified
}

// FromWireName resolves only exact wire names, as carried inside key
// blobs. Short names and RSA1 return Unspecified.
func FromWireName(name string) Type {
	for _, e := range table {
		if e.name != "" && e.name == name {
			return e.typ
		}
	}
	logging.Debugf("keytype: unknown wire name %q", name)
	return Unspecified
}

// CurveFromName returns the curve encoded in an ECDSA (or ECDSA certificate)
// wire name, or CurveNone.
func CurveFromName(name string) Curve {
	for _, e := range table {
		if e.typ != ECDSA && e.typ != ECDSACert {
			continue
		}
		if e.name == name {
			return e.curve
		}
	}
	logging.Debugf("keytype: unknown/non-ECDSA key type %q", name)
	return CurveNone
}

// Plain strips the certificate modifier from t.
func Plain(t Type) Type {
	switch t {
	case RSACert, RSACertV00:
		return RSA
	case DSACert, DSACertV00:
		return DSA
	case ECDSACert:
		return ECDSA
	case Ed25519Cert:
		return Ed25519
	default:
		return t
	}
}

// IsCert reports whether t is a certificate type.
func IsCert(t Type) bool {
	for _, e := range table {
		if e.typ == t {
			return e.cert
		}
	}
	return false
}

// IsLegacyCert reports whether t uses the -v00 certificate layout.
func IsLegacyCert(t Type) bool {
	return t == RSACertV00 || t == DSACertV00
}

// IsValidCA reports whether a key of type t may sign certificates.
func IsValidCA(t Type) bool {
	switch t {
	case RSA, DSA, ECDSA, Ed25519:
		return true
	default:
		return false
	}
}

// Certified returns the certificate counterpart of a plain type. ok is false
// when no such counterpart exists (RSA1, legacy ECDSA/Ed25519, cert types).
func Certified(t Type, legacy bool) (Type, bool) {
	switch t {
	case RSA:
		if legacy {
			return RSACertV00, true
		}
		return RSACert, true
	case DSA:
		if legacy {
			return DSACertV00, true
		}
		return DSACert, true
	case ECDSA:
		return ECDSACert, !legacy
	case Ed25519:
		return Ed25519Cert, !legacy
	default:
		return Unspecified, false
	}
}

// WireName returns the protocol name for t. The curve selects among the ECDSA
// rows and is ignored for the other types. A diagnostic placeholder is
// returned instead of failing.
func WireName(t Type, c Curve) string {
	for _, e := range table {
		if e.typ == t && (e.curve == CurveNone || e.curve == c) {
			if e.name == "" {
				break
			}
			return e.name
		}
	}
	return UnknownName
}

// ShortName returns the display name for t, e.g. "RSA" or "ECDSA-CERT".
func ShortName(t Type) string {
	for _, e := range table {
		if e.typ == t {
			return e.shortName
		}
	}
	return "unknown"
}

// String implements fmt.Stringer.
func (t Type) String() string { return ShortName(t) }

// AlgorithmList returns the newline-separated wire names suitable for
// capability negotiation. RSA1 has no wire name and is never listed.
func AlgorithmList(certsOnly, plainOnly bool) string {
	var names []string
	for _, e := range table {
		if e.name == "" {
			continue
		}
		if (certsOnly && !e.cert) || (plainOnly && e.cert) {
			continue
		}
		names = append(names, e.name)
	}
	return strings.Join(names, "\n")
}

// NamesValid reports whether every entry of a comma-separated algorithm list
// names a usable protocol-2 key type.
func NamesValid(names string) bool {
	if names == "" {
		return false
	}
	for _, n := range strings.Split(names, ",") {
		if n == "" {
			break
		}
		switch FromName(n) {
		case RSA1, Unspecified:
			return false
		}
	}
	logging.Debugf("keytype: key names ok: [%s]", names)
	return true
}
