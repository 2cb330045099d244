// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"fmt"
	"strings"

	"github.com/toeirei/keycore/internal/keytype"
)

// AuthorizedLine is one entry of an authorized_keys or known public key
// file.
type AuthorizedLine struct {
	Options string
	Key     *Key
	Comment string
}

// ParseAuthorizedLine splits an authorized_keys line into its leading
// options (e.g. from="...",command="..."), the key and the comment. Lines
// whose key field is a decimal number hold RSA1 keys.
func ParseAuthorizedLine(line string) (*AuthorizedLine, error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return nil, fmt.Errorf("%w: empty line", ErrInvalidFormat)
	}

	var options string
	want, ok := keyStart(line)
	if !ok {
		end := optionsEnd(line)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated quote in options", ErrInvalidFormat)
		}
		options, line = line[:end], strings.TrimLeft(line[end:], " \t")
		if want, ok = keyStart(line); !ok {
			return nil, fmt.Errorf("%w: no key found after options", ErrInvalidFormat)
		}
	}

	k, rest, err := ReadText(line, want)
	if err != nil {
		return nil, err
	}
	return &AuthorizedLine{Options: options, Key: k, Comment: strings.TrimSpace(rest)}, nil
}

// keyStart reports whether s begins with a key and which type ReadText
// should expect.
func keyStart(s string) (keytype.Type, bool) {
	field, _, _ := cutField(s)
	if field == "" {
		return keytype.Unspecified, false
	}
	if field[0] >= '0' && field[0] <= '9' {
		return keytype.RSA1, true
	}
	t := keytype.FromName(field)
	if t == keytype.Unspecified {
		return keytype.Unspecified, false
	}
	curve := keytype.CurveNone
	if keytype.Plain(t) == keytype.ECDSA {
		curve = keytype.CurveFromName(field)
	}
	// Short names such as "rsa" are not valid here.
	if keytype.WireName(t, curve) != field {
		return keytype.Unspecified, false
	}
	return keytype.Unspecified, true
}

// optionsEnd returns the index of the first unquoted blank in s, or -1 when
// a quote is left open.
func optionsEnd(s string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quoted && i+1 < len(s) {
				i++
			}
		case '"':
			quoted = !quoted
		case ' ', '\t':
			if !quoted {
				return i
			}
		}
	}
	if quoted {
		return -1
	}
	return len(s)
}
