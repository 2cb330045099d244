// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey holds the in-memory representation of SSH public and
// private keys and certificates, and the codecs between that
// representation and the SSH wire, private blob and single-line text
// formats. Signing and verification dispatch to golang.org/x/crypto/ssh.
package sshkey // import "github.com/toeirei/keycore/internal/sshkey"

import "errors"

var (
	ErrInvalidFormat        = errors.New("sshkey: invalid key format")
	ErrUnknownType          = errors.New("sshkey: unknown key type")
	ErrCertNotAllowed       = errors.New("sshkey: certificate not allowed in this context")
	ErrTrailingData         = errors.New("sshkey: trailing data after key blob")
	ErrTypeMismatch         = errors.New("sshkey: key type mismatch")
	ErrCurveMismatch        = errors.New("sshkey: ecdsa curve does not match key type")
	ErrInvalidPoint         = errors.New("sshkey: invalid EC public key")
	ErrInvalidScalar        = errors.New("sshkey: invalid EC private key")
	ErrInvalidCA            = errors.New("sshkey: invalid certificate authority key")
	ErrInvalidCertType      = errors.New("sshkey: unknown certificate type")
	ErrTooManyPrincipals    = errors.New("sshkey: too many principals")
	ErrCertSignatureInvalid = errors.New("sshkey: invalid signature on certificate")
	ErrNotCertificate       = errors.New("sshkey: key is not a certificate")
	ErrUnsupported          = errors.New("sshkey: unsupported key type or size")
	ErrIncompleteKey        = errors.New("sshkey: incomplete key")
	ErrNotPrivate           = errors.New("sshkey: private key required")
	ErrNoSigner             = errors.New("sshkey: external key has no signer attached")
)
