// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/wire"
	"golang.org/x/crypto/ssh"
)

const testNow = 1_700_000_000

type certParams struct {
	legacy     bool
	certType   CertType
	principals []string
	after      uint64
	before     uint64
	critical   []byte
	extensions []byte
}

// issue certifies a public copy of subject with ca and returns the signed
// (unparsed) key.
func issue(t *testing.T, subject, ca *Key, p certParams) *Key {
	t.Helper()
	k := Demote(subject)
	if err := ToCertified(k, p.legacy); err != nil {
		t.Fatalf("ToCertified: %v", err)
	}
	k.Cert.Type = p.certType
	k.Cert.Serial = 42
	k.Cert.KeyID = "keyid-test"
	k.Cert.Principals = p.principals
	k.Cert.ValidAfter = p.after
	k.Cert.ValidBefore = p.before
	k.Cert.Critical = p.critical
	k.Cert.Extensions = p.extensions
	if err := Certify(k, ca); err != nil {
		t.Fatalf("Certify: %v", err)
	}
	return k
}

func issueAndParse(t *testing.T, subject, ca *Key, p certParams) *Key {
	t.Helper()
	k := issue(t, subject, ca, p)
	parsed, err := DecodeBlob(k.Cert.Blob, true)
	if err != nil {
		t.Fatalf("DecodeBlob(cert): %v", err)
	}
	return parsed
}

func TestHostCertificateExample(t *testing.T) {
	setNow(t, testNow)
	cert := issueAndParse(t, testKey(t, "rsa"), testKey(t, "ed25519"), certParams{
		certType:   HostCert,
		principals: []string{"host.example.com"},
		after:      testNow - 10,
		before:     testNow + 3600,
	})
	if ok, reason := cert.CheckAuthority(true, true, "host.example.com"); !ok {
		t.Fatalf("expected authority check to pass, got %q", reason)
	}
	ok, reason := cert.CheckAuthority(true, true, "other.example.com")
	if ok || reason != ReasonNotAPrincipal {
		t.Fatalf("expected principal mismatch, got %v %q", ok, reason)
	}
}

func TestCertificateValidityBoundaries(t *testing.T) {
	subject, ca := testKey(t, "ed25519"), testKey(t, "ecdsa256")
	cases := []struct {
		name   string
		after  uint64
		before uint64
		ok     bool
		reason string
	}{
		{"before is exclusive", testNow - 100, testNow, false, ReasonExpired},
		{"after is inclusive", testNow, testNow + 100, true, ""},
		{"not yet valid", testNow + 1, testNow + 100, false, ReasonNotYetValid},
		{"last valid second", testNow - 100, testNow + 1, true, ""},
	}
	setNow(t, testNow)
	for _, c := range cases {
		cert := issueAndParse(t, subject, ca, certParams{
			certType:   UserCert,
			principals: []string{"alice"},
			after:      c.after,
			before:     c.before,
		})
		ok, reason := cert.CheckAuthority(false, true, "alice")
		if ok != c.ok || reason != c.reason {
			t.Fatalf("%s: got %v %q, want %v %q", c.name, ok, reason, c.ok, c.reason)
		}
	}
}

func TestCheckAuthorityTypeAndPrincipals(t *testing.T) {
	setNow(t, testNow)
	subject, ca := testKey(t, "ecdsa384"), testKey(t, "ed25519")
	window := certParams{after: testNow - 1, before: testNow + 60}

	p := window
	p.certType, p.principals = UserCert, []string{"alice", "bob"}
	user := issueAndParse(t, subject, ca, p)
	if ok, reason := user.CheckAuthority(true, false, ""); ok || reason != ReasonNotHost {
		t.Fatalf("user cert accepted as host: %v %q", ok, reason)
	}
	if ok, _ := user.CheckAuthority(false, true, "bob"); !ok {
		t.Fatalf("listed principal rejected")
	}
	if ok, _ := user.CheckAuthority(false, true, ""); !ok {
		t.Fatalf("no name given should skip principal matching")
	}

	p = window
	p.certType = HostCert
	host := issueAndParse(t, subject, ca, p)
	if ok, reason := host.CheckAuthority(false, false, ""); ok || reason != ReasonNotUser {
		t.Fatalf("host cert accepted as user: %v %q", ok, reason)
	}
	if ok, reason := host.CheckAuthority(true, true, "h"); ok || reason != ReasonNoPrincipals {
		t.Fatalf("empty principal list with requirement: %v %q", ok, reason)
	}
	if ok, _ := host.CheckAuthority(true, false, "anything"); !ok {
		t.Fatalf("empty principal list should mean any principal")
	}
	if host.CertTypeName() != "host" || user.CertTypeName() != "user" {
		t.Fatalf("unexpected cert type names %q %q", host.CertTypeName(), user.CertTypeName())
	}
}

func TestCertificateRoundTripAllCAs(t *testing.T) {
	setNow(t, testNow)
	for _, f := range fixtureSpecs {
		ca := testKey(t, f.name)
		subject := testKey(t, "ed25519")
		issued := issue(t, subject, ca, certParams{
			certType:   UserCert,
			principals: []string{"alice"},
			after:      testNow - 1,
			before:     testNow + 1,
		})
		parsed, err := DecodeBlob(issued.Cert.Blob, true)
		if err != nil {
			t.Fatalf("%s CA: DecodeBlob: %v", f.name, err)
		}
		if !Equal(parsed, issued) {
			t.Fatalf("%s CA: parsed cert differs from issued", f.name)
		}
		c := parsed.Cert
		if c.Serial != 42 || c.KeyID != "keyid-test" || len(c.Principals) != 1 || c.Principals[0] != "alice" {
			t.Fatalf("%s CA: unexpected fields %+v", f.name, c)
		}
		if !EqualPublic(c.SignatureKey, ca) || c.SignatureKey.IsPrivate() {
			t.Fatalf("%s CA: signature key mismatch", f.name)
		}
		if !EqualPublic(parsed, subject) {
			t.Fatalf("%s CA: certified key differs from subject", f.name)
		}
		if ok, reason := parsed.CheckAuthority(false, true, "alice"); !ok {
			t.Fatalf("%s CA: %s", f.name, reason)
		}
	}
}

func TestCertificateEverySubjectType(t *testing.T) {
	ca := testKey(t, "ed25519")
	for _, f := range fixtureSpecs {
		k := issueAndParse(t, testKey(t, f.name), ca, certParams{certType: HostCert, before: ^uint64(0)})
		want, _ := keytype.Certified(f.typ, false)
		if k.Type != want {
			t.Fatalf("%s: got type %v, want %v", f.name, k.Type, want)
		}
		plain, err := EncodeBlob(k, true)
		if err != nil {
			t.Fatalf("%s: EncodeBlob(forcePlain): %v", f.name, err)
		}
		orig, _ := EncodeBlob(testKey(t, f.name), false)
		if !bytes.Equal(plain, orig) {
			t.Fatalf("%s: forcePlain encoding differs from plain key blob", f.name)
		}
	}
}

func TestLegacyCertificate(t *testing.T) {
	setNow(t, testNow)
	for _, name := range []string{"rsa", "dsa"} {
		issued := issue(t, testKey(t, name), testKey(t, "ecdsa256"), certParams{
			legacy:     true,
			certType:   UserCert,
			principals: []string{"alice"},
			after:      testNow - 1,
			before:     testNow + 1,
		})
		if !keytype.IsLegacyCert(issued.Type) {
			t.Fatalf("%s: expected legacy type, got %v", name, issued.Type)
		}
		parsed, err := DecodeBlob(issued.Cert.Blob, true)
		if err != nil {
			t.Fatalf("%s: DecodeBlob(v00): %v", name, err)
		}
		if parsed.Cert.Serial != 0 {
			t.Fatalf("%s: legacy certificates carry no serial, got %d", name, parsed.Cert.Serial)
		}
		if ok, reason := parsed.CheckAuthority(false, true, "alice"); !ok {
			t.Fatalf("%s: %s", name, reason)
		}
	}
}

func TestCertificateInteropWithXCrypto(t *testing.T) {
	ca := testKey(t, "ed25519")
	ours := issue(t, testKey(t, "ecdsa256"), ca, certParams{
		certType:   UserCert,
		principals: []string{"alice"},
		after:      testNow - 10,
		before:     testNow + 10,
		extensions: EncodeOptions([]Option{FlagOption("permit-pty")}),
	})
	pub, err := ssh.ParsePublicKey(ours.Cert.Blob)
	if err != nil {
		t.Fatalf("x/crypto rejected certificate: %v", err)
	}
	cert, ok := pub.(*ssh.Certificate)
	if !ok {
		t.Fatalf("expected *ssh.Certificate, got %T", pub)
	}
	checker := ssh.CertChecker{Clock: func() time.Time { return time.Unix(testNow, 0) }}
	if err := checker.CheckCert("alice", cert); err != nil {
		t.Fatalf("x/crypto CheckCert: %v", err)
	}
	if _, ok := cert.Permissions.Extensions["permit-pty"]; !ok {
		t.Fatalf("extension lost: %v", cert.Permissions.Extensions)
	}

	// And the other direction.
	caPriv, err := ca.CryptoPrivateKey()
	if err != nil {
		t.Fatalf("CryptoPrivateKey: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(caPriv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}
	subjectPub, err := Demote(testKey(t, "ed25519")).SSHPublicKey()
	if err != nil {
		t.Fatalf("SSHPublicKey: %v", err)
	}
	theirs := &ssh.Certificate{
		Key:             subjectPub,
		Serial:          7,
		CertType:        ssh.HostCert,
		KeyId:           "x-crypto",
		ValidPrincipals: []string{"host.example.com"},
		ValidAfter:      testNow - 10,
		ValidBefore:     testNow + 10,
	}
	if err := theirs.SignCert(rand.Reader, signer); err != nil {
		t.Fatalf("SignCert: %v", err)
	}
	k, err := DecodeBlob(theirs.Marshal(), true)
	if err != nil {
		t.Fatalf("DecodeBlob(x/crypto cert): %v", err)
	}
	if k.Cert.Serial != 7 || k.Cert.KeyID != "x-crypto" || k.Cert.Type != HostCert {
		t.Fatalf("unexpected fields %+v", k.Cert)
	}
	setNow(t, testNow)
	if ok, reason := k.CheckAuthority(true, true, "host.example.com"); !ok {
		t.Fatalf("CheckAuthority: %s", reason)
	}
}

func principalList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%03d", i)
	}
	return out
}

func TestPrincipalCap(t *testing.T) {
	subject, ca := testKey(t, "ed25519"), testKey(t, "ed25519")
	k := issueAndParse(t, subject, ca, certParams{certType: UserCert, principals: principalList(MaxPrincipals), before: 1})
	if len(k.Cert.Principals) != MaxPrincipals {
		t.Fatalf("expected %d principals, got %d", MaxPrincipals, len(k.Cert.Principals))
	}

	over := Demote(subject)
	if err := ToCertified(over, false); err != nil {
		t.Fatalf("ToCertified: %v", err)
	}
	over.Cert.Type = UserCert
	over.Cert.Principals = principalList(MaxPrincipals + 1)
	if err := Certify(over, ca); !errors.Is(err, ErrTooManyPrincipals) {
		t.Fatalf("expected ErrTooManyPrincipals from Certify, got %v", err)
	}
	if over.Cert.Blob != nil {
		t.Fatalf("failed Certify left a blob")
	}

	w := wire.NewWriter()
	for _, p := range principalList(MaxPrincipals + 1) {
		w.CString(p)
	}
	b, _ := w.Bytes()
	if _, err := parsePrincipals(b); !errors.Is(err, ErrTooManyPrincipals) {
		t.Fatalf("expected ErrTooManyPrincipals from parser, got %v", err)
	}
}

func TestCertifyFailureClearsBlob(t *testing.T) {
	ca := testKey(t, "ed25519")
	k := issue(t, testKey(t, "rsa"), ca, certParams{certType: UserCert, before: 1})
	if len(k.Cert.Blob) == 0 {
		t.Fatalf("expected a blob after successful Certify")
	}
	if err := Certify(k, Demote(ca)); err == nil {
		t.Fatalf("Certify with a public-only CA should fail")
	}
	if k.Cert.Blob != nil {
		t.Fatalf("stale blob left after failed Certify")
	}

	caCert := issue(t, testKey(t, "ecdsa256"), ca, certParams{certType: UserCert, before: 1})
	if err := Certify(k, caCert); !errors.Is(err, ErrInvalidCA) {
		t.Fatalf("expected ErrInvalidCA for certificate CA, got %v", err)
	}

	plain := Demote(testKey(t, "rsa"))
	plain.Cert = &Certificate{}
	if err := Certify(plain, ca); !errors.Is(err, ErrNotCertificate) {
		t.Fatalf("expected ErrNotCertificate, got %v", err)
	}
}

func TestTamperedCertificateRejected(t *testing.T) {
	k := issue(t, testKey(t, "ed25519"), testKey(t, "rsa"), certParams{certType: UserCert, before: 1})
	blob := bytes.Clone(k.Cert.Blob)
	i := bytes.Index(blob, []byte("keyid-test"))
	if i < 0 {
		t.Fatalf("key id not found in blob")
	}
	blob[i] ^= 0x01
	if _, err := DecodeBlob(blob, true); !errors.Is(err, ErrCertSignatureInvalid) {
		t.Fatalf("expected ErrCertSignatureInvalid, got %v", err)
	}
}

func TestCertificateOptions(t *testing.T) {
	critical := EncodeOptions([]Option{StringOption("force-command", "/bin/true")})
	exts := EncodeOptions([]Option{FlagOption("permit-pty"), FlagOption("permit-X11-forwarding")})
	k := issueAndParse(t, testKey(t, "ed25519"), testKey(t, "ed25519"), certParams{
		certType:   UserCert,
		before:     1,
		critical:   critical,
		extensions: exts,
	})
	opts, err := ParseOptions(k.Cert.Critical)
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if len(opts) != 1 || opts[0].Name != "force-command" {
		t.Fatalf("unexpected critical options %+v", opts)
	}
	if v, err := opts[0].Value(); err != nil || v != "/bin/true" {
		t.Fatalf("Value: %q %v", v, err)
	}
	ext, err := ParseOptions(k.Cert.Extensions)
	if err != nil || len(ext) != 2 || ext[1].Name != "permit-X11-forwarding" {
		t.Fatalf("unexpected extensions %+v %v", ext, err)
	}

	bad := issue(t, testKey(t, "ed25519"), testKey(t, "ed25519"), certParams{
		certType: UserCert,
		before:   1,
		critical: critical[:len(critical)-1],
	})
	if _, err := DecodeBlob(bad.Cert.Blob, true); err == nil {
		t.Fatalf("malformed critical options accepted")
	}
}

// rawCert assembles an unsigned ed25519 v01 certificate blob field by field.
func rawCert(t *testing.T, certType uint32, exts, caBlob []byte) []byte {
	t.Helper()
	w := wire.NewWriter()
	w.CString("ssh-ed25519-cert-v01@openssh.com")
	w.String(make([]byte, 32))
	w.String(testKey(t, "ed25519").Ed25519.Public)
	w.Uint64(1)
	w.Uint32(certType)
	w.CString("raw")
	w.String(nil)
	w.Uint64(0)
	w.Uint64(^uint64(0))
	w.String(nil)
	w.String(exts)
	w.String(nil)
	w.String(caBlob)
	w.String([]byte("sig"))
	b, err := w.Bytes()
	if err != nil {
		t.Fatalf("build cert: %v", err)
	}
	return b
}

func TestParseCertificateRejectsBadFields(t *testing.T) {
	caBlob, err := EncodeBlob(testKey(t, "ecdsa256"), true)
	if err != nil {
		t.Fatalf("EncodeBlob: %v", err)
	}
	certCA := issue(t, testKey(t, "rsa"), testKey(t, "ed25519"), certParams{certType: UserCert, before: 1})

	cases := []struct {
		name    string
		blob    []byte
		wantErr error
		wantMsg string
	}{
		{"unknown type", rawCert(t, 3, nil, caBlob), ErrInvalidCertType, ""},
		{"malformed extensions", rawCert(t, uint32(UserCert), []byte{0, 0, 0, 1, 'a'}, caBlob), nil, "extension data invalid"},
		{"certificate as CA", rawCert(t, uint32(HostCert), nil, certCA.Cert.Blob), ErrCertNotAllowed, "signature key invalid"},
	}
	for _, c := range cases {
		_, err := DecodeBlob(c.blob, true)
		if err == nil {
			t.Fatalf("%s: accepted", c.name)
		}
		if c.wantErr != nil && !errors.Is(err, c.wantErr) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.wantErr, err)
		}
		if c.wantMsg != "" && !strings.Contains(err.Error(), c.wantMsg) {
			t.Fatalf("%s: expected %q in %v", c.name, c.wantMsg, err)
		}
	}

	// The same layout with a valid type decodes up to the signature check.
	if _, err := DecodeBlob(rawCert(t, uint32(UserCert), nil, caBlob), true); err == nil || errors.Is(err, ErrInvalidCertType) {
		t.Fatalf("expected a signature failure, got %v", err)
	}
}
