// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package agentkeys

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"golang.org/x/crypto/ssh/agent"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/sshkey"
)

// pipeAgent serves a fresh in-memory keyring over net.Pipe and returns a
// protocol client for it.
func pipeAgent(t *testing.T) *Client {
	t.Helper()
	server, client := net.Pipe()
	keyring := agent.NewKeyring()
	go func() { _ = agent.ServeAgent(keyring, server) }()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return &Client{agent: agent.NewClient(client), closer: client}
}

func genKey(t *testing.T, typ keytype.Type) *sshkey.Key {
	t.Helper()
	bits := sshkey.DefaultBits(typ)
	if typ == keytype.RSA {
		bits = 2048
	}
	k, err := sshkey.Generate(typ, bits)
	if err != nil {
		t.Fatalf("Generate(%s): %v", typ, err)
	}
	return k
}

func TestListSignsThroughAgent(t *testing.T) {
	ctx := context.Background()
	c := pipeAgent(t)
	keys := map[string]*sshkey.Key{
		"ed25519": genKey(t, keytype.Ed25519),
		"ecdsa":   genKey(t, keytype.ECDSA),
		"rsa":     genKey(t, keytype.RSA),
	}
	for name, k := range keys {
		if err := c.Add(k, name); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	ids, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != len(keys) {
		t.Fatalf("expected %d identities, got %d", len(keys), len(ids))
	}
	data := []byte("challenge")
	for _, id := range ids {
		want, ok := keys[id.Comment]
		if !ok {
			t.Fatalf("unexpected comment %q", id.Comment)
		}
		if !sshkey.EqualPublic(id.Key, want) {
			t.Fatalf("%s: listed key differs", id.Comment)
		}
		if id.Key.Flags&sshkey.FlagExternal == 0 || !id.Key.IsPrivate() {
			t.Fatalf("%s: agent key not marked external", id.Comment)
		}
		sig, err := sshkey.Sign(id.Key, data)
		if err != nil {
			t.Fatalf("%s: Sign: %v", id.Comment, err)
		}
		res, err := sshkey.Verify(sshkey.FromPrivate(want), sig, data)
		if err != nil || res != sshkey.VerifyValid {
			t.Fatalf("%s: Verify = %v, %v", id.Comment, res, err)
		}
	}
}

func TestAddCertificate(t *testing.T) {
	c := pipeAgent(t)
	ca := genKey(t, keytype.Ed25519)
	k := genKey(t, keytype.Ed25519)
	if err := sshkey.ToCertified(k, false); err != nil {
		t.Fatalf("ToCertified: %v", err)
	}
	k.Cert.Type = sshkey.UserCert
	k.Cert.KeyID = "agent-user"
	k.Cert.Principals = []string{"alice"}
	k.Cert.ValidBefore = ^uint64(0)
	if err := sshkey.Certify(k, ca); err != nil {
		t.Fatalf("Certify: %v", err)
	}
	if err := c.Add(k, "cert"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ids, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var found bool
	for _, id := range ids {
		if id.Key.IsCert() {
			found = true
			if id.Key.Cert.KeyID != "agent-user" {
				t.Fatalf("unexpected key id %q", id.Key.Cert.KeyID)
			}
		}
	}
	if !found {
		t.Fatalf("certificate identity not listed")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c := pipeAgent(t)
	k := genKey(t, keytype.Ed25519)
	if err := c.Add(k, "gone"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Remove(k); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ids, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty agent, got %d identities", len(ids))
	}
}

func TestAddRequiresPrivateKey(t *testing.T) {
	c := New(agent.NewKeyring())
	pub := sshkey.FromPrivate(genKey(t, keytype.Ed25519))
	if err := c.Add(pub, ""); !errors.Is(err, sshkey.ErrNotPrivate) {
		t.Fatalf("expected ErrNotPrivate, got %v", err)
	}
}

func TestListHonoursCancelledContext(t *testing.T) {
	c := New(agent.NewKeyring())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConnectUsesDialer(t *testing.T) {
	orig := agentDialer
	defer func() { agentDialer = orig }()

	agentDialer = func() (agent.Agent, io.Closer, error) { return nil, nil, ErrNoAgent }
	if _, err := Connect(); !errors.Is(err, ErrNoAgent) {
		t.Fatalf("expected ErrNoAgent, got %v", err)
	}

	agentDialer = func() (agent.Agent, io.Closer, error) { return agent.NewKeyring(), nil, nil }
	c, err := Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
