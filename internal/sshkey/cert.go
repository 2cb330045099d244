// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/security"
	"github.com/toeirei/keycore/internal/wire"
)

// CertType is the certificate subject type.
type CertType uint32

const (
	UserCert CertType = 1
	HostCert CertType = 2
)

// MaxPrincipals bounds the principal list of a certificate.
const MaxPrincipals = 256

const nonceSize = 32

// Certificate is owned by exactly one Key. Blob holds the signed bytes as
// transmitted; the other fields are either parsed from it or, before
// Certify, the values to be signed.
type Certificate struct {
	Blob        []byte
	Type        CertType
	Serial      uint64
	KeyID       string
	Principals  []string
	ValidAfter  uint64
	ValidBefore uint64
	// Critical and Extensions hold raw sequences of name/value string
	// pairs; see EncodeOptions and ParseOptions.
	Critical   []byte
	Extensions []byte

	SignatureKey *Key
}

// nonceReader is the entropy source for certificate nonces.
var nonceReader io.Reader = rand.Reader

func (c *Certificate) clone() *Certificate {
	if c == nil {
		return nil
	}
	n := &Certificate{
		Blob:        cloneBytes(c.Blob),
		Type:        c.Type,
		Serial:      c.Serial,
		KeyID:       c.KeyID,
		ValidAfter:  c.ValidAfter,
		ValidBefore: c.ValidBefore,
		Critical:    cloneBytes(c.Critical),
		Extensions:  cloneBytes(c.Extensions),
	}
	if len(c.Principals) > MaxPrincipals {
		panic(fmt.Sprintf("sshkey: %d principals exceeds limit %d", len(c.Principals), MaxPrincipals))
	}
	if c.Principals != nil {
		n.Principals = append([]string(nil), c.Principals...)
	}
	if c.SignatureKey != nil {
		n.SignatureKey = FromPrivate(c.SignatureKey)
	}
	return n
}

func (c *Certificate) destroy() {
	if c == nil {
		return
	}
	security.Wipe(c.Blob)
	c.Blob = nil
	c.Principals = nil
	c.Critical = nil
	c.Extensions = nil
	if c.SignatureKey != nil {
		c.SignatureKey.Destroy()
		c.SignatureKey = nil
	}
}

// parseCertificate reads the certificate fields following the public key
// material. blob is the complete certificate blob the reader was created
// from.
func (d *Decoder) parseCertificate(r *wire.Reader, k *Key, blob []byte) error {
	c := k.Cert
	c.Blob = bytes.Clone(blob)
	legacy := keytype.IsLegacyCert(k.Type)

	var (
		principals, critical, exts, caBlob []byte
		certType                           uint32
		err                                error
	)
	parseErr := func(field string, err error) error {
		return fmt.Errorf("certificate %s: %w", field, err)
	}
	if !legacy {
		if c.Serial, err = r.Uint64(); err != nil {
			return parseErr("serial", err)
		}
	}
	if certType, err = r.Uint32(); err != nil {
		return parseErr("type", err)
	}
	if c.KeyID, err = r.CString(); err != nil {
		return parseErr("key id", err)
	}
	if principals, err = r.String(); err != nil {
		return parseErr("principals", err)
	}
	if c.ValidAfter, err = r.Uint64(); err != nil {
		return parseErr("valid after", err)
	}
	if c.ValidBefore, err = r.Uint64(); err != nil {
		return parseErr("valid before", err)
	}
	if critical, err = r.String(); err != nil {
		return parseErr("critical options", err)
	}
	if !legacy {
		if exts, err = r.String(); err != nil {
			return parseErr("extensions", err)
		}
	} else if err = r.Skip(); err != nil {
		return parseErr("nonce", err)
	}
	if err = r.Skip(); err != nil {
		return parseErr("reserved", err)
	}
	if caBlob, err = r.String(); err != nil {
		return parseErr("signature key", err)
	}

	// The signature is still unread, so everything before it is signed.
	signedLen := len(blob) - r.Len()

	sig, err := r.String()
	if err != nil {
		return parseErr("signature", err)
	}

	c.Type = CertType(certType)
	if c.Type != UserCert && c.Type != HostCert {
		return fmt.Errorf("%w %d", ErrInvalidCertType, certType)
	}

	if c.Principals, err = parsePrincipals(principals); err != nil {
		return err
	}
	if _, err := ParseOptions(critical); err != nil {
		return fmt.Errorf("critical option data invalid: %w", err)
	}
	c.Critical = bytes.Clone(critical)
	if _, err := ParseOptions(exts); err != nil {
		return fmt.Errorf("extension data invalid: %w", err)
	}
	c.Extensions = bytes.Clone(exts)

	ca, err := d.DecodeBlob(caBlob, false)
	if err != nil {
		return fmt.Errorf("signature key invalid: %w", err)
	}
	if !keytype.IsValidCA(ca.Type) {
		ca.Destroy()
		return fmt.Errorf("%w: %s", ErrInvalidCA, ca.ShortName())
	}
	c.SignatureKey = ca

	res, err := Verify(ca, sig, blob[:signedLen])
	switch res {
	case VerifyValid:
		return nil
	case VerifyInvalid:
		return ErrCertSignatureInvalid
	default:
		return fmt.Errorf("certificate signature verification failed: %w", err)
	}
}

func parsePrincipals(b []byte) ([]string, error) {
	var out []string
	r := wire.NewReader(b)
	for !r.Empty() {
		if len(out) >= MaxPrincipals {
			return nil, ErrTooManyPrincipals
		}
		p, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("principals data invalid: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Certify signs k's certificate fields with ca and stores the resulting
// blob. The blob is built separately and committed only on success; on
// failure k.Cert.Blob is left empty. The public half of ca becomes the
// certificate's SignatureKey.
func Certify(k, ca *Key) error {
	if k.Cert == nil {
		return fmt.Errorf("%w: key lacks cert info", ErrIncompleteKey)
	}
	c := k.Cert
	security.Wipe(c.Blob)
	c.Blob = nil

	if !keytype.IsCert(k.Type) {
		return fmt.Errorf("%w: %s", ErrNotCertificate, k.ShortName())
	}
	if ca == nil || !keytype.IsValidCA(ca.Type) {
		name := "<nil>"
		if ca != nil {
			name = ca.ShortName()
		}
		return fmt.Errorf("%w: CA key has unsupported type %s", ErrInvalidCA, name)
	}
	if len(c.Principals) > MaxPrincipals {
		return fmt.Errorf("%w: %d", ErrTooManyPrincipals, len(c.Principals))
	}
	caBlob, err := EncodeBlob(ca, false)
	if err != nil {
		return fmt.Errorf("sshkey: encode CA key: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(nonceReader, nonce); err != nil {
		return fmt.Errorf("sshkey: read nonce: %w", err)
	}
	legacy := keytype.IsLegacyCert(k.Type)

	w := wire.NewWriter()
	w.CString(k.Name())
	if !legacy {
		w.String(nonce)
	}
	if err := writePublic(w, k); err != nil {
		return err
	}
	if !legacy {
		w.Uint64(c.Serial)
	}
	w.Uint32(uint32(c.Type))
	w.CString(c.KeyID)

	pw := wire.NewWriter()
	for _, p := range c.Principals {
		pw.CString(p)
	}
	principals, err := pw.Bytes()
	if err != nil {
		return err
	}
	w.String(principals)

	w.Uint64(c.ValidAfter)
	w.Uint64(c.ValidBefore)
	w.String(c.Critical)
	if !legacy {
		w.String(c.Extensions)
	} else {
		w.String(nonce)
	}
	w.String(nil) // reserved
	w.String(caBlob)

	tbs, err := w.Bytes()
	if err != nil {
		return err
	}
	sig, err := Sign(ca, tbs)
	if err != nil {
		return fmt.Errorf("sshkey: signature operation failed: %w", err)
	}
	w.String(sig)
	blob, err := w.Bytes()
	if err != nil {
		return err
	}

	c.Blob = bytes.Clone(blob)
	if c.SignatureKey != nil {
		c.SignatureKey.Destroy()
	}
	c.SignatureKey = FromPrivate(ca)
	return nil
}

// Authority check failure reasons.
const (
	ReasonNotHost         = "Certificate invalid: not a host certificate"
	ReasonNotUser         = "Certificate invalid: not a user certificate"
	ReasonNotYetValid     = "Certificate invalid: not yet valid"
	ReasonExpired         = "Certificate invalid: expired"
	ReasonNoPrincipals    = "Certificate lacks principal list"
	ReasonNotAPrincipal   = "Certificate invalid: name is not a listed principal"
	reasonNotACertificate = "Key is not a certificate"
)

// CheckAuthority reports whether the certificate on k may be used now as a
// host (wantHost) or user certificate for name. An empty name skips the
// principal match. The certificate signature is not checked here; it was
// verified when the certificate was parsed. On failure the reason is a
// human readable explanation.
func (k *Key) CheckAuthority(wantHost, requirePrincipal bool, name string) (bool, string) {
	if k.Cert == nil {
		return false, reasonNotACertificate
	}
	c := k.Cert
	if wantHost {
		if c.Type != HostCert {
			return false, ReasonNotHost
		}
	} else if c.Type != UserCert {
		return false, ReasonNotUser
	}

	now := defaultClock.Now().Unix()
	if now < 0 {
		logging.Errorf("sshkey: system clock lies before epoch")
		return false, ReasonNotYetValid
	}
	if uint64(now) < c.ValidAfter {
		return false, ReasonNotYetValid
	}
	if uint64(now) >= c.ValidBefore {
		return false, ReasonExpired
	}

	if len(c.Principals) == 0 {
		if requirePrincipal {
			return false, ReasonNoPrincipals
		}
	} else if name != "" {
		for _, p := range c.Principals {
			if p == name {
				return true, ""
			}
		}
		return false, ReasonNotAPrincipal
	}
	return true, ""
}

// CertTypeName returns "user", "host" or "unknown".
func (k *Key) CertTypeName() string {
	if k.Cert == nil {
		return "unknown"
	}
	return k.Cert.Type.String()
}

func (t CertType) String() string {
	switch t {
	case UserCert:
		return "user"
	case HostCert:
		return "host"
	default:
		return "unknown"
	}
}
