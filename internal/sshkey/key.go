// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"bytes"
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/security"
	"golang.org/x/crypto/ssh"
)

// Flags carries informational key attributes.
type Flags uint32

const (
	// FlagExternal marks a key whose private half lives outside this process,
	// e.g. in an agent or a hardware token.
	FlagExternal Flags = 1 << iota
)

// RSAKey holds RSA material. Private fields are nil for public keys.
type RSAKey struct {
	N, E *big.Int
	D    *big.Int
	Iqmp *big.Int
	P, Q *big.Int
	Dmp1 *big.Int
	Dmq1 *big.Int
}

// DSAKey holds DSA material. X is nil for public keys.
type DSAKey struct {
	P, Q, G *big.Int
	Y       *big.Int
	X       *big.Int
}

// ECDSAKey holds a NIST curve point and optionally the private scalar D.
type ECDSAKey struct {
	Curve keytype.Curve
	X, Y  *big.Int
	D     *big.Int
}

// Ed25519Key holds a 32 byte public key and optionally the 64 byte private
// key.
type Ed25519Key struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Key is a tagged union: exactly one material pointer is populated and it
// matches keytype.Plain(Type). Cert is set iff Type is a certificate type.
// A Key is not safe for concurrent mutation.
type Key struct {
	Type  keytype.Type
	Flags Flags

	RSA     *RSAKey
	DSA     *DSAKey
	ECDSA   *ECDSAKey
	Ed25519 *Ed25519Key

	Cert *Certificate

	signer ssh.Signer
}

func badType(fn string, t keytype.Type) string {
	return fmt.Sprintf("sshkey.%s: bad key type %d", fn, int(t))
}

// New returns an empty key of type t. RSA and DSA keys get zero-valued
// placeholders for their public components; ECDSA and Ed25519 material is
// assigned once known. Certificate types receive an empty Certificate.
func New(t keytype.Type) *Key {
	k := &Key{Type: t}
	switch t {
	case keytype.RSA1, keytype.RSA, keytype.RSACert, keytype.RSACertV00:
		k.RSA = &RSAKey{N: new(big.Int), E: new(big.Int)}
	case keytype.DSA, keytype.DSACert, keytype.DSACertV00:
		k.DSA = &DSAKey{P: new(big.Int), Q: new(big.Int), G: new(big.Int), Y: new(big.Int)}
	case keytype.ECDSA, keytype.ECDSACert:
	case keytype.Ed25519, keytype.Ed25519Cert:
	case keytype.Unspecified:
	default:
		panic(badType("New", t))
	}
	if keytype.IsCert(t) {
		k.Cert = &Certificate{}
	}
	return k
}

// NewPrivate is New followed by AddPrivate.
func NewPrivate(t keytype.Type) *Key {
	k := New(t)
	k.AddPrivate()
	return k
}

// AddPrivate extends k in place with private placeholders. ECDSA and
// Ed25519 private material arrives as a unit, so nothing is added for them.
func (k *Key) AddPrivate() {
	switch k.Type {
	case keytype.RSA1, keytype.RSA, keytype.RSACert, keytype.RSACertV00:
		if k.RSA == nil {
			k.RSA = &RSAKey{N: new(big.Int), E: new(big.Int)}
		}
		k.RSA.D = new(big.Int)
		k.RSA.Iqmp = new(big.Int)
		k.RSA.P = new(big.Int)
		k.RSA.Q = new(big.Int)
		k.RSA.Dmp1 = new(big.Int)
		k.RSA.Dmq1 = new(big.Int)
	case keytype.DSA, keytype.DSACert, keytype.DSACertV00:
		if k.DSA == nil {
			k.DSA = &DSAKey{P: new(big.Int), Q: new(big.Int), G: new(big.Int), Y: new(big.Int)}
		}
		k.DSA.X = new(big.Int)
	case keytype.ECDSA, keytype.ECDSACert, keytype.Ed25519, keytype.Ed25519Cert, keytype.Unspecified:
	default:
		panic(badType("AddPrivate", k.Type))
	}
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// publicCopy copies the public material of k into a fresh key of the same
// type. The certificate is not copied.
func publicCopy(k *Key, fn string) *Key {
	n := &Key{Type: k.Type}
	switch keytype.Plain(k.Type) {
	case keytype.RSA1, keytype.RSA:
		if k.RSA != nil {
			n.RSA = &RSAKey{N: cloneInt(k.RSA.N), E: cloneInt(k.RSA.E)}
		}
	case keytype.DSA:
		if k.DSA != nil {
			n.DSA = &DSAKey{
				P: cloneInt(k.DSA.P),
				Q: cloneInt(k.DSA.Q),
				G: cloneInt(k.DSA.G),
				Y: cloneInt(k.DSA.Y),
			}
		}
	case keytype.ECDSA:
		if k.ECDSA != nil {
			n.ECDSA = &ECDSAKey{Curve: k.ECDSA.Curve, X: cloneInt(k.ECDSA.X), Y: cloneInt(k.ECDSA.Y)}
		}
	case keytype.Ed25519:
		if k.Ed25519 != nil && k.Ed25519.Public != nil {
			n.Ed25519 = &Ed25519Key{Public: ed25519.PublicKey(cloneBytes(k.Ed25519.Public))}
		}
	default:
		panic(badType(fn, k.Type))
	}
	return n
}

// FromPrivate returns a public-only copy of k, including a deep copy of its
// certificate. It is used to derive a CA's public identity.
func FromPrivate(k *Key) *Key {
	n := publicCopy(k, "FromPrivate")
	if keytype.IsCert(k.Type) {
		n.Cert = k.Cert.clone()
	}
	return n
}

// Demote returns a public-only copy of k preserving its type, flags and
// certificate.
func Demote(k *Key) *Key {
	n := FromPrivate(k)
	n.Flags = k.Flags
	return n
}

// EqualPublic compares the public components of a and b after reducing both
// to their plain type.
func EqualPublic(a, b *Key) bool {
	if a == nil || b == nil || keytype.Plain(a.Type) != keytype.Plain(b.Type) {
		return false
	}
	switch keytype.Plain(a.Type) {
	case keytype.RSA1, keytype.RSA:
		return a.RSA != nil && b.RSA != nil &&
			a.RSA.E.Cmp(b.RSA.E) == 0 &&
			a.RSA.N.Cmp(b.RSA.N) == 0
	case keytype.DSA:
		return a.DSA != nil && b.DSA != nil &&
			a.DSA.P.Cmp(b.DSA.P) == 0 &&
			a.DSA.Q.Cmp(b.DSA.Q) == 0 &&
			a.DSA.G.Cmp(b.DSA.G) == 0 &&
			a.DSA.Y.Cmp(b.DSA.Y) == 0
	case keytype.ECDSA:
		if a.ECDSA == nil || b.ECDSA == nil || a.ECDSA.X == nil || b.ECDSA.X == nil {
			return false
		}
		return a.ECDSA.Curve == b.ECDSA.Curve &&
			a.ECDSA.X.Cmp(b.ECDSA.X) == 0 &&
			a.ECDSA.Y.Cmp(b.ECDSA.Y) == 0
	case keytype.Ed25519:
		if a.Ed25519 == nil || b.Ed25519 == nil ||
			len(a.Ed25519.Public) != ed25519.PublicKeySize ||
			len(b.Ed25519.Public) != ed25519.PublicKeySize {
			return false
		}
		return subtle.ConstantTimeCompare(a.Ed25519.Public, b.Ed25519.Public) == 1
	default:
		panic(badType("EqualPublic", a.Type))
	}
}

// Equal additionally requires identical types and, for certificates,
// identical certificate blobs.
func Equal(a, b *Key) bool {
	if a == nil || b == nil || a.Type != b.Type {
		return false
	}
	if keytype.IsCert(a.Type) {
		if a.Cert == nil || b.Cert == nil ||
			len(a.Cert.Blob) != len(b.Cert.Blob) ||
			subtle.ConstantTimeCompare(a.Cert.Blob, b.Cert.Blob) != 1 {
			return false
		}
	}
	return EqualPublic(a, b)
}

// Size returns the key strength in bits, or 0 if unknown.
func (k *Key) Size() int {
	switch keytype.Plain(k.Type) {
	case keytype.RSA1, keytype.RSA:
		if k.RSA != nil && k.RSA.N != nil {
			return k.RSA.N.BitLen()
		}
	case keytype.DSA:
		if k.DSA != nil && k.DSA.P != nil {
			return k.DSA.P.BitLen()
		}
	case keytype.ECDSA:
		if k.ECDSA != nil {
			return k.ECDSA.Curve.Bits()
		}
	case keytype.Ed25519:
		return 256
	}
	return 0
}

// Curve returns the ECDSA curve of k, or CurveNone.
func (k *Key) Curve() keytype.Curve {
	if k.ECDSA == nil {
		return keytype.CurveNone
	}
	return k.ECDSA.Curve
}

// Name returns the wire name of k's type, e.g. "ecdsa-sha2-nistp256".
func (k *Key) Name() string { return keytype.WireName(k.Type, k.Curve()) }

// PlainName returns the wire name of k's plain type.
func (k *Key) PlainName() string {
	return keytype.WireName(keytype.Plain(k.Type), k.Curve())
}

// ShortName returns the display name of k's type.
func (k *Key) ShortName() string { return keytype.ShortName(k.Type) }

// IsCert reports whether k is a certificate.
func (k *Key) IsCert() bool { return keytype.IsCert(k.Type) }

// IsPrivate reports whether k carries private material or, for external
// keys, an attached signer.
func (k *Key) IsPrivate() bool {
	return k.signer != nil || k.hasPrivateMaterial()
}

func (k *Key) hasPrivateMaterial() bool {
	switch keytype.Plain(k.Type) {
	case keytype.RSA1, keytype.RSA:
		return k.RSA != nil && k.RSA.D != nil && k.RSA.D.Sign() > 0
	case keytype.DSA:
		return k.DSA != nil && k.DSA.X != nil && k.DSA.X.Sign() > 0
	case keytype.ECDSA:
		return k.ECDSA != nil && k.ECDSA.D != nil && k.ECDSA.D.Sign() > 0
	case keytype.Ed25519:
		return k.Ed25519 != nil && len(k.Ed25519.Private) == ed25519.PrivateKeySize
	}
	return false
}

// Destroy wipes all private material held by k and its certificate, then
// drops every reference. k must not be used afterwards.
func (k *Key) Destroy() {
	if k == nil {
		return
	}
	if r := k.RSA; r != nil {
		for _, x := range []*big.Int{r.D, r.Iqmp, r.P, r.Q, r.Dmp1, r.Dmq1} {
			security.WipeInt(x)
		}
		k.RSA = nil
	}
	if d := k.DSA; d != nil {
		security.WipeInt(d.X)
		k.DSA = nil
	}
	if e := k.ECDSA; e != nil {
		security.WipeInt(e.D)
		k.ECDSA = nil
	}
	if e := k.Ed25519; e != nil {
		security.Wipe(e.Private)
		k.Ed25519 = nil
	}
	if k.Cert != nil {
		k.Cert.destroy()
		k.Cert = nil
	}
	k.signer = nil
}

// ToCertified promotes a plain key to its certificate type with an empty
// certificate. Legacy certificates exist only for RSA and DSA.
func ToCertified(k *Key, legacy bool) error {
	t, ok := keytype.Certified(k.Type, legacy)
	if !ok {
		if keytype.IsValidCA(k.Type) {
			return fmt.Errorf("%w: legacy %s certificates", ErrUnsupported, k.ShortName())
		}
		return fmt.Errorf("%w: cannot certify key of type %s", ErrTypeMismatch, k.ShortName())
	}
	k.Cert = &Certificate{}
	k.Type = t
	return nil
}

// DropCert demotes a certificate key to its plain type, discarding the
// certificate.
func DropCert(k *Key) error {
	if !keytype.IsCert(k.Type) {
		return fmt.Errorf("%w: %s", ErrNotCertificate, k.ShortName())
	}
	k.Cert.destroy()
	k.Cert = nil
	k.Type = keytype.Plain(k.Type)
	return nil
}
