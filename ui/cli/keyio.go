// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/keycore/internal/i18n"
	"github.com/toeirei/keycore/internal/security"
	"github.com/toeirei/keycore/internal/sshkey"
)

// publicEntry is one key read from a public key or authorized_keys file.
type publicEntry struct {
	Key     *sshkey.Key
	Comment string
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func isPrivateFile(data []byte) bool {
	return bytes.Contains(data, []byte("PRIVATE KEY-----"))
}

// parsePublicKeys parses every non-empty, non-comment line of data as an
// authorized_keys entry. Leading options are ignored.
func parsePublicKeys(data []byte) ([]publicEntry, error) {
	var out []publicEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		al, err := sshkey.ParseAuthorizedLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, publicEntry{Key: al.Key, Comment: al.Comment})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no keys found", sshkey.ErrInvalidFormat)
	}
	return out, nil
}

// readKeys loads every key in path. Private key files yield one private
// key, prompting for a passphrase when the file is encrypted and none was
// given.
func readKeys(cmd *cobra.Command, path, passphrase string) ([]publicEntry, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	if !isPrivateFile(data) {
		return parsePublicKeys(data)
	}
	k, err := sshkey.ParsePEM(data, []byte(passphrase))
	if errors.Is(err, sshkey.ErrPassphraseRequired) && passphrase == "" {
		var p []byte
		if p, err = promptPassphrase(cmd, false); err != nil {
			return nil, err
		}
		k, err = sshkey.ParsePEM(data, p)
		security.Wipe(p)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []publicEntry{{Key: k}}, nil
}

// readKey is readKeys for files holding exactly one key.
func readKey(cmd *cobra.Command, path, passphrase string) (publicEntry, error) {
	keys, err := readKeys(cmd, path, passphrase)
	if err != nil {
		return publicEntry{}, err
	}
	for _, e := range keys[1:] {
		e.Key.Destroy()
	}
	return keys[0], nil
}

// promptPassphrase asks for a passphrase on the controlling terminal. With
// confirm set the passphrase is asked twice and must match.
func promptPassphrase(cmd *cobra.Command, confirm bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, sshkey.ErrPassphraseRequired
	}
	ask := func(id string) ([]byte, error) {
		fmt.Fprint(cmd.ErrOrStderr(), i18n.T(id))
		p, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		return p, err
	}
	p, err := ask("msg.passphrase_prompt")
	if err != nil || !confirm {
		return p, err
	}
	again, err := ask("msg.passphrase_confirm")
	if err != nil {
		security.Wipe(p)
		return nil, err
	}
	defer security.Wipe(again)
	if subtle.ConstantTimeCompare(p, again) != 1 {
		security.Wipe(p)
		return nil, errors.New(i18n.T("msg.passphrase_mismatch"))
	}
	return p, nil
}

// writeFile writes data to path, refusing to replace an existing file unless
// force is set.
func writeFile(path string, data []byte, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
