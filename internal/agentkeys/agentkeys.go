// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package agentkeys exposes the identities held by a running SSH agent as
// sshkey.Key values that sign through the agent.
package agentkeys // import "github.com/toeirei/keycore/internal/agentkeys"

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/sshkey"
)

// ErrNoAgent is returned by Connect when no agent is reachable.
var ErrNoAgent = errors.New("agentkeys: no SSH agent available")

// Identity is one key listed by the agent.
type Identity struct {
	Key     *sshkey.Key
	Comment string
}

// Client talks to an SSH agent.
type Client struct {
	agent  agent.Agent
	closer io.Closer
}

// agentDialer is replaced in tests.
var agentDialer = dialAgent

// Connect opens the platform agent.
func Connect() (*Client, error) {
	a, c, err := agentDialer()
	if err != nil {
		return nil, err
	}
	return &Client{agent: a, closer: c}, nil
}

// New wraps an existing agent, such as agent.NewKeyring().
func New(a agent.Agent) *Client { return &Client{agent: a} }

// Close releases the agent connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// List returns every identity the agent holds in a form sshkey understands.
// Each key carries FlagExternal and signs through the agent. Identities of
// unsupported types are skipped.
func (c *Client) List(ctx context.Context) ([]Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listed, err := c.agent.List()
	if err != nil {
		return nil, fmt.Errorf("agentkeys: list: %w", err)
	}
	comments := make(map[string]string, len(listed))
	for _, l := range listed {
		comments[string(l.Blob)] = l.Comment
	}

	signers, err := c.agent.Signers()
	if err != nil {
		return nil, fmt.Errorf("agentkeys: signers: %w", err)
	}
	out := make([]Identity, 0, len(signers))
	for _, s := range signers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blob := s.PublicKey().Marshal()
		k, err := sshkey.DecodeBlob(blob, true)
		if err != nil {
			logging.Debugf("agentkeys: skipping %s identity: %v", s.PublicKey().Type(), err)
			continue
		}
		if err := k.WithSigner(s); err != nil {
			k.Destroy()
			return nil, fmt.Errorf("agentkeys: attach signer: %w", err)
		}
		out = append(out, Identity{Key: k, Comment: comments[string(blob)]})
	}
	return out, nil
}

// Add loads the private key k into the agent. Certificate keys are added
// together with their certificate.
func (c *Client) Add(k *sshkey.Key, comment string) error {
	priv, err := k.CryptoPrivateKey()
	if err != nil {
		return fmt.Errorf("agentkeys: add: %w", err)
	}
	added := agent.AddedKey{PrivateKey: priv, Comment: comment}
	if k.IsCert() {
		pub, err := k.SSHPublicKey()
		if err != nil {
			return fmt.Errorf("agentkeys: add: %w", err)
		}
		cert, ok := pub.(*ssh.Certificate)
		if !ok {
			return fmt.Errorf("agentkeys: add: %w: %s", sshkey.ErrUnsupported, k.ShortName())
		}
		added.Certificate = cert
	}
	if err := c.agent.Add(added); err != nil {
		return fmt.Errorf("agentkeys: add: %w", err)
	}
	return nil
}

// Remove deletes the identity matching k's public half from the agent.
func (c *Client) Remove(k *sshkey.Key) error {
	pub, err := k.SSHPublicKey()
	if err != nil {
		return fmt.Errorf("agentkeys: remove: %w", err)
	}
	if err := c.agent.Remove(pub); err != nil {
		return fmt.Errorf("agentkeys: remove: %w", err)
	}
	return nil
}
