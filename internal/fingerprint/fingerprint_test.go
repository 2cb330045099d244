// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package fingerprint

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/sshkey"
)

func seededKey(t *testing.T, seed byte) *sshkey.Key {
	t.Helper()
	k, err := sshkey.FromCrypto(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
	if err != nil {
		t.Fatalf("FromCrypto: %v", err)
	}
	return k
}

func TestRawMatchesPublicBlob(t *testing.T) {
	k := seededKey(t, 7)
	pub, err := k.SSHPublicKey()
	if err != nil {
		t.Fatalf("SSHPublicKey: %v", err)
	}
	raw, err := Raw(k, SHA256)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	want := sha256.Sum256(pub.Marshal())
	if !bytes.Equal(raw, want[:]) {
		t.Fatalf("raw digest mismatch")
	}
	for h, n := range map[Hash]int{MD5: 16, SHA1: 20, SHA256: 32} {
		d, err := Raw(k, h)
		if err != nil || len(d) != n {
			t.Fatalf("Raw(%s) len=%d err=%v", h, len(d), err)
		}
	}
}

func TestHexMatchesLegacyMD5(t *testing.T) {
	k := seededKey(t, 1)
	pub, err := k.SSHPublicKey()
	if err != nil {
		t.Fatalf("SSHPublicKey: %v", err)
	}
	got, err := Fingerprint(k, MD5, Hex)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if want := ssh.FingerprintLegacyMD5(pub); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCertificateSharesKeyFingerprint(t *testing.T) {
	ca := seededKey(t, 2)
	subject := sshkey.FromPrivate(seededKey(t, 3))
	plain, err := Fingerprint(subject, SHA256, Hex)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if err := sshkey.ToCertified(subject, false); err != nil {
		t.Fatalf("ToCertified: %v", err)
	}
	subject.Cert.Type = sshkey.UserCert
	subject.Cert.KeyID = "fp"
	subject.Cert.ValidBefore = ^uint64(0)
	if err := sshkey.Certify(subject, ca); err != nil {
		t.Fatalf("Certify: %v", err)
	}
	cert, err := Fingerprint(subject, SHA256, Hex)
	if err != nil {
		t.Fatalf("Fingerprint cert: %v", err)
	}
	if cert != plain {
		t.Fatalf("certificate fingerprint %q differs from key %q", cert, plain)
	}
}

func TestRSA1HashesModulusAndExponent(t *testing.T) {
	k := sshkey.New(keytype.RSA1)
	k.RSA.N = big.NewInt(0x0102)
	k.RSA.E = big.NewInt(0x03)
	raw, err := Raw(k, SHA256)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	want := sha256.Sum256([]byte{0x01, 0x02, 0x03})
	if !bytes.Equal(raw, want[:]) {
		t.Fatalf("rsa1 digest mismatch")
	}
}

func TestUnspecifiedKeyFails(t *testing.T) {
	k := sshkey.New(keytype.Unspecified)
	if _, err := Raw(k, SHA256); !errors.Is(err, sshkey.ErrIncompleteKey) {
		t.Fatalf("expected ErrIncompleteKey, got %v", err)
	}
}

func TestDeterministicAndSensitive(t *testing.T) {
	a, _ := Fingerprint(seededKey(t, 4), SHA1, BubbleBabble)
	b, _ := Fingerprint(seededKey(t, 4), SHA1, BubbleBabble)
	c, _ := Fingerprint(seededKey(t, 5), SHA1, BubbleBabble)
	if a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("different keys share fingerprint %q", a)
	}
}

func TestFormatHex(t *testing.T) {
	if got := FormatHex([]byte{0x00, 0xab, 0x0f}); got != "00:ab:0f" {
		t.Fatalf("got %q", got)
	}
	if got := FormatHex(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatBubbleBabble(t *testing.T) {
	cases := map[string]string{
		"":           "xexax",
		"1234567890": "xesef-disof-gytuf-katof-movif-baxux",
		"Pineapple":  "xigak-nyryk-humil-bosek-sonax",
	}
	for in, want := range cases {
		if got := FormatBubbleBabble([]byte(in)); got != want {
			t.Fatalf("FormatBubbleBabble(%q) = %q want %q", in, got, want)
		}
	}
}

func TestFormatRandomArt(t *testing.T) {
	d := make([]byte, 16)
	for i := range d {
		d[i] = byte(i)
	}
	want := strings.Join([]string{
		"+--[ RSA 2048]----+",
		"|EX+.o.           |",
		"|XO.  .           |",
		"|o..   .          |",
		"|       .         |",
		"|        S        |",
		"|                 |",
		"|                 |",
		"|                 |",
		"|                 |",
		"+-----------------+",
	}, "\n")
	if got := FormatRandomArt(d, "RSA", 2048); got != want {
		t.Fatalf("randomart mismatch:\n%s\nwant:\n%s", got, want)
	}

	got := FormatRandomArt(d, "ED25519", 256)
	lines := strings.Split(got, "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if len(l) != 19 {
			t.Fatalf("line %d width %d: %q", i, len(l), l)
		}
	}
	if lines[0] != "+--[ED25519  256--+" {
		t.Fatalf("header %q", lines[0])
	}
}

func TestRandomArtFromKey(t *testing.T) {
	art, err := Fingerprint(seededKey(t, 9), MD5, RandomArt)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if !strings.HasPrefix(art, "+--[ED25519  256") || strings.Count(art, "S") != 1 {
		t.Fatalf("unexpected art:\n%s", art)
	}
}

func TestParse(t *testing.T) {
	if h, err := ParseHash("SHA256"); err != nil || h != SHA256 {
		t.Fatalf("ParseHash: %v %v", h, err)
	}
	if _, err := ParseHash("sha512"); !errors.Is(err, ErrUnknownHash) {
		t.Fatalf("expected ErrUnknownHash, got %v", err)
	}
	if r, err := ParseRepresentation("art"); err != nil || r != RandomArt {
		t.Fatalf("ParseRepresentation: %v %v", r, err)
	}
	if _, err := ParseRepresentation("base64"); !errors.Is(err, ErrUnknownRepresentation) {
		t.Fatalf("expected ErrUnknownRepresentation, got %v", err)
	}
}
