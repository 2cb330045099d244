//go:build windows

// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package agentkeys

import (
	"fmt"
	"io"
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"
)

// defaultPipe is where the Windows OpenSSH agent listens.
const defaultPipe = `\\.\pipe\openssh-ssh-agent`

// dialAgent prefers a Pageant-compatible agent and falls back to the
// OpenSSH named pipe from SSH_AUTH_SOCK or its default location.
func dialAgent() (agent.Agent, io.Closer, error) {
	if pageant.Available() {
		return pageant.New(), nil, nil
	}

	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = defaultPipe
	}
	conn, err := winio.DialPipe(pipe, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoAgent, err)
	}
	return agent.NewClient(conn), conn, nil
}
