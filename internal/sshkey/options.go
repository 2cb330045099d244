// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"fmt"

	"github.com/toeirei/keycore/internal/wire"
)

// Option is one critical option or extension of a certificate. Data is the
// raw value field; for valued options it is itself a length-prefixed string.
type Option struct {
	Name string
	Data []byte
}

// FlagOption returns an option without a value, e.g. "permit-pty".
func FlagOption(name string) Option { return Option{Name: name} }

// StringOption returns an option whose value is a single string, e.g.
// "force-command".
func StringOption(name, value string) Option {
	w := wire.NewWriter()
	w.CString(value)
	b, _ := w.Bytes()
	return Option{Name: name, Data: b}
}

// Value decodes Data as a single string. It returns "" for flag options.
func (o Option) Value() (string, error) {
	if len(o.Data) == 0 {
		return "", nil
	}
	r := wire.NewReader(o.Data)
	v, err := r.CString()
	if err != nil {
		return "", fmt.Errorf("option %s: %w", o.Name, err)
	}
	if !r.Empty() {
		return "", fmt.Errorf("option %s: %w", o.Name, ErrTrailingData)
	}
	return v, nil
}

// EncodeOptions serialises opts as a flat sequence of name/value strings.
func EncodeOptions(opts []Option) []byte {
	if len(opts) == 0 {
		return nil
	}
	w := wire.NewWriter()
	for _, o := range opts {
		w.CString(o.Name)
		w.String(o.Data)
	}
	b, _ := w.Bytes()
	return b
}

// ParseOptions splits b into name/value pairs. Any structural error,
// including a dangling name, fails the whole parse.
func ParseOptions(b []byte) ([]Option, error) {
	var out []Option
	r := wire.NewReader(b)
	for !r.Empty() {
		name, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("%w: option name: %v", ErrInvalidFormat, err)
		}
		data, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("%w: option %s value: %v", ErrInvalidFormat, name, err)
		}
		out = append(out, Option{Name: string(name), Data: append([]byte(nil), data...)})
	}
	return out, nil
}
