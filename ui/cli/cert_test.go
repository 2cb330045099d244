// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/keycore/internal/sshkey"
)

func TestParseTimeSpec(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = old })

	cases := []struct {
		in   string
		want uint64
	}{
		{"", 0},
		{"always", 0},
		{"Forever", math.MaxUint64},
		{"1700000000", 1700000000},
		{"+1h", uint64(now.Add(time.Hour).Unix())},
		{"-30m", uint64(now.Add(-30 * time.Minute).Unix())},
		{"2026-01-02", uint64(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC).Unix())},
		{"2026-01-02T03:04:05Z", uint64(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Unix())},
		{"1969-01-01", 0},
	}
	for _, c := range cases {
		got, err := parseTimeSpec(c.in)
		if err != nil {
			t.Fatalf("parseTimeSpec(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parseTimeSpec(%q) = %d, want %d", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"tomorrow", "+1 day", "2026-13-01"} {
		if _, err := parseTimeSpec(bad); err == nil {
			t.Fatalf("parseTimeSpec(%q) accepted", bad)
		}
	}
}

func TestBuildOptions(t *testing.T) {
	opts, err := buildOptions([]string{"source-address=10.0.0.0/8", "force-command=/bin/true", "no-touch-required"})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, o := range opts {
		names = append(names, o.Name)
	}
	if got := strings.Join(names, ","); got != "force-command,no-touch-required,source-address" {
		t.Fatalf("options not sorted: %s", got)
	}
	if v, err := opts[2].Value(); err != nil || v != "10.0.0.0/8" {
		t.Fatalf("value %q, %v", v, err)
	}
	if v, err := opts[1].Value(); err != nil || v != "" {
		t.Fatalf("flag option value %q, %v", v, err)
	}

	if _, err := buildOptions([]string{"a", "a=1"}); err == nil {
		t.Fatal("duplicate option accepted")
	}
	if _, err := buildOptions([]string{"=x"}); err == nil {
		t.Fatal("nameless option accepted")
	}
}

func TestCertPath(t *testing.T) {
	if got := certPath("keys/id_ed25519.pub"); got != "keys/id_ed25519-cert.pub" {
		t.Fatalf("got %s", got)
	}
	if got := certPath("host"); got != "host-cert.pub" {
		t.Fatalf("got %s", got)
	}
}

// issueUserCert creates a CA and a user key and certifies the latter.
func issueUserCert(t *testing.T, extra ...string) {
	t.Helper()
	mustRun(t, "keygen", "-t", "ed25519", "-f", "ca", "-C", "ca")
	mustRun(t, "keygen", "-t", "ecdsa", "-f", "user", "-C", "alice@laptop")
	args := append([]string{"certify", "--ca", "ca", "-I", "alice", "-n", "alice,admin", "-z", "42",
		"--valid-before", "+24h"}, extra...)
	out := mustRun(t, append(args, "user.pub")...)
	if !strings.Contains(out, "user-cert.pub") {
		t.Fatalf("certificate path not reported: %q", out)
	}
}

func TestCertifyUserCertificate(t *testing.T) {
	isolate(t)
	issueUserCert(t, "-O", "force-command=/usr/bin/id")

	pub, comment := readAuthorizedKey(t, "user-cert.pub")
	if comment != "alice@laptop" {
		t.Fatalf("comment %q", comment)
	}
	cert, ok := pub.(*ssh.Certificate)
	if !ok {
		t.Fatalf("got %T", pub)
	}
	if cert.CertType != ssh.UserCert || cert.KeyId != "alice" || cert.Serial != 42 {
		t.Fatalf("unexpected certificate %+v", cert)
	}
	if strings.Join(cert.ValidPrincipals, ",") != "alice,admin" {
		t.Fatalf("principals %v", cert.ValidPrincipals)
	}
	if cert.CriticalOptions["force-command"] != "/usr/bin/id" {
		t.Fatalf("critical options %v", cert.CriticalOptions)
	}
	if _, ok := cert.Extensions["permit-pty"]; !ok {
		t.Fatalf("default extensions missing: %v", cert.Extensions)
	}

	caPub, _ := readAuthorizedKey(t, "ca.pub")
	if string(cert.SignatureKey.Marshal()) != string(caPub.Marshal()) {
		t.Fatal("signature key is not the CA")
	}
	checker := &ssh.CertChecker{
		IsUserAuthority: func(k ssh.PublicKey) bool {
			return string(k.Marshal()) == string(caPub.Marshal())
		},
		SupportedCriticalOptions: []string{"force-command"},
	}
	if err := checker.CheckCert("admin", cert); err != nil {
		t.Fatalf("x/crypto rejects the certificate: %v", err)
	}
	userPub, _ := readAuthorizedKey(t, "user.pub")
	if string(cert.Key.Marshal()) != string(userPub.Marshal()) {
		t.Fatal("certified key differs from the input")
	}
}

func TestCertifyRefusesBadInput(t *testing.T) {
	isolate(t)
	mustRun(t, "keygen", "-t", "ed25519", "-f", "ca")
	mustRun(t, "keygen", "-t", "ed25519", "-f", "user")

	cases := [][]string{
		{"certify", "user.pub"},
		{"certify", "--ca", "ca.pub", "user.pub"},
		{"certify", "--ca", "ca", "--valid-after", "+2h", "--valid-before", "+1h", "user.pub"},
		{"certify", "--ca", "ca", "-O", "x", "-O", "x", "user.pub"},
		{"certify", "--ca", "ca", "--legacy", "user.pub"},
	}
	for _, args := range cases {
		if _, err := run(t, args...); err == nil {
			t.Fatalf("%v succeeded", args)
		}
	}
	if _, err := os.Stat("user-cert.pub"); !os.IsNotExist(err) {
		t.Fatalf("certificate written by a failed run: %v", err)
	}
}

func TestCertifyHostToStdout(t *testing.T) {
	isolate(t)
	mustRun(t, "keygen", "-t", "ed25519", "-f", "ca")
	mustRun(t, "keygen", "-t", "ed25519", "-f", "host")
	out := mustRun(t, "certify", "--ca", "ca", "--host", "-I", "web1", "-n", "web1.example.org", "-o", "-", "host.pub")
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	cert := pub.(*ssh.Certificate)
	if cert.CertType != ssh.HostCert || len(cert.Extensions) != 0 {
		t.Fatalf("unexpected host certificate: type %d extensions %v", cert.CertType, cert.Extensions)
	}
}

func TestCheckCertificate(t *testing.T) {
	isolate(t)
	issueUserCert(t)

	out := mustRun(t, "check", "-n", "admin", "user-cert.pub")
	if !strings.Contains(out, "certificate accepted") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err := run(t, "check", "-n", "mallory", "user-cert.pub")
	if !errors.Is(err, errReported) || !strings.Contains(out, "certificate rejected") {
		t.Fatalf("wrong principal: err %v output %q", err, out)
	}
	if _, err := run(t, "check", "--host", "user-cert.pub"); !errors.Is(err, errReported) {
		t.Fatalf("user certificate accepted as host certificate: %v", err)
	}
	if _, err := run(t, "check", "user.pub"); !errors.Is(err, sshkey.ErrNotCertificate) {
		t.Fatalf("plain key: %v", err)
	}
}

func TestCheckExpiredCertificate(t *testing.T) {
	isolate(t)
	mustRun(t, "keygen", "-t", "ed25519", "-f", "ca")
	mustRun(t, "keygen", "-t", "ed25519", "-f", "user")
	mustRun(t, "certify", "--ca", "ca", "-I", "old", "--valid-after", "1000", "--valid-before", "2000", "user.pub")
	out, err := run(t, "check", "user-cert.pub")
	if !errors.Is(err, errReported) || !strings.Contains(out, "rejected") {
		t.Fatalf("expired certificate: err %v output %q", err, out)
	}
}

func TestInspectCertificate(t *testing.T) {
	isolate(t)
	issueUserCert(t)
	out := mustRun(t, "inspect", "user-cert.pub")
	for _, want := range []string{"ECDSA-CERT", "user", "42", `"alice"`, "alice, admin", "permit-pty", "Signing CA", "ED25519"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing from:\n%s", want, out)
		}
	}
}
