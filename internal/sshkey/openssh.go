// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/security"
	"golang.org/x/crypto/ssh"
)

// ErrPassphraseRequired is returned by ParsePEM for encrypted keys when no
// passphrase was supplied.
var ErrPassphraseRequired = errors.New("sshkey: private key is passphrase protected")

// MarshalPEM encodes the private half of k as an OpenSSH private key file.
// A non-empty passphrase encrypts the key. DSA keys are not supported by
// the OpenSSH file writer.
func MarshalPEM(k *Key, comment string, passphrase []byte) (security.Secret, error) {
	if keytype.Plain(k.Type) == keytype.DSA {
		return nil, fmt.Errorf("%w: openssh private key files for dsa keys", ErrUnsupported)
	}
	priv, err := k.CryptoPrivateKey()
	if err != nil {
		return nil, err
	}
	defer wipeCryptoKey(priv)
	var block *pem.Block
	if len(passphrase) == 0 {
		block, err = ssh.MarshalPrivateKey(priv, comment)
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, comment, passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	out := pem.EncodeToMemory(block)
	security.Wipe(block.Bytes)
	return security.Secret(out), nil
}

// ParsePEM decodes a PEM private key in any format understood by
// x/crypto/ssh (OpenSSH, PKCS#1, PKCS#8, SEC1, DSA).
func ParsePEM(data, passphrase []byte) (*Key, error) {
	var (
		raw any
		err error
	)
	if len(passphrase) == 0 {
		raw, err = ssh.ParseRawPrivateKey(data)
	} else {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	defer wipeCryptoKey(raw)
	return FromCrypto(raw)
}

// AuthorizedKey returns k in authorized_keys format with an optional
// trailing comment.
func AuthorizedKey(k *Key, comment string) (string, error) {
	line, err := MarshalText(k)
	if err != nil {
		return "", err
	}
	if comment = strings.TrimSpace(comment); comment != "" {
		line += " " + comment
	}
	return line, nil
}
