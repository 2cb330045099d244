// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/wire"
	"golang.org/x/crypto/ssh"
)

// VerifyResult distinguishes a wrong signature from a malformed one.
type VerifyResult int

const (
	VerifyError VerifyResult = iota - 1
	VerifyInvalid
	VerifyValid
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyValid:
		return "valid"
	case VerifyInvalid:
		return "invalid"
	default:
		return "error"
	}
}

const dsaSignatureSize = 40

// WithSigner attaches an external signer, typically agent backed, to k and
// marks it FlagExternal. The signer's public key must match k.
func (k *Key) WithSigner(s ssh.Signer) error {
	pub, err := FromSSHPublicKey(s.PublicKey())
	if err != nil {
		return err
	}
	if !EqualPublic(pub, k) {
		return fmt.Errorf("%w: signer does not match key", ErrTypeMismatch)
	}
	k.signer = s
	k.Flags |= FlagExternal
	return nil
}

// signerFor returns the ssh.Signer used to sign with k. release wipes the
// temporary private key behind a local signer and must be called once the
// signer is no longer used.
func signerFor(k *Key) (s ssh.Signer, release func(), err error) {
	if k.signer != nil {
		return k.signer, func() {}, nil
	}
	if k.Flags&FlagExternal != 0 {
		return nil, nil, ErrNoSigner
	}
	priv, err := k.CryptoPrivateKey()
	if err != nil {
		return nil, nil, err
	}
	s, err = ssh.NewSignerFromKey(priv)
	if err != nil {
		wipeCryptoKey(priv)
		return nil, nil, err
	}
	return s, func() { wipeCryptoKey(priv) }, nil
}

// Sign signs data with the private half of k. The result is the SSH
// signature encoding: string(format) string(blob). RSA keys sign with
// ssh-rsa (SHA-1); ECDSA keys use the hash matching their curve.
func Sign(k *Key, data []byte) ([]byte, error) {
	switch keytype.Plain(k.Type) {
	case keytype.RSA, keytype.DSA, keytype.ECDSA, keytype.Ed25519:
	case keytype.RSA1:
		return nil, fmt.Errorf("%w: RSA1 keys cannot sign", ErrUnsupported)
	default:
		panic(badType("Sign", k.Type))
	}
	s, release, err := signerFor(k)
	if err != nil {
		return nil, fmt.Errorf("sshkey: sign: %w", err)
	}
	defer release()
	var sig *ssh.Signature
	if as, ok := s.(ssh.AlgorithmSigner); ok {
		sig, err = as.SignWithAlgorithm(rand.Reader, data, k.signatureFormat())
	} else {
		sig, err = s.Sign(rand.Reader, data)
	}
	if err != nil {
		return nil, fmt.Errorf("sshkey: sign: %w", err)
	}
	w := wire.NewWriter()
	w.CString(sig.Format)
	w.String(sig.Blob)
	return w.Bytes()
}

// signatureFormat is the only signature format accepted for k.
func (k *Key) signatureFormat() string {
	return keytype.WireName(keytype.Plain(k.Type), k.Curve())
}

// Verify checks sig over data with the public half of k. An empty
// signature is VerifyInvalid. Structurally malformed signatures return
// VerifyError together with the reason; a well-formed signature that does
// not match returns VerifyInvalid.
func Verify(k *Key, sig, data []byte) (VerifyResult, error) {
	if len(sig) == 0 {
		return VerifyInvalid, nil
	}
	plain := keytype.Plain(k.Type)
	switch plain {
	case keytype.RSA, keytype.DSA, keytype.ECDSA, keytype.Ed25519:
	case keytype.RSA1:
		return VerifyError, fmt.Errorf("%w: RSA1 keys cannot verify", ErrUnsupported)
	default:
		panic(badType("Verify", k.Type))
	}

	r := wire.NewReader(sig)
	format, err := r.CString()
	if err != nil {
		return VerifyError, fmt.Errorf("sshkey: signature format: %w", err)
	}
	blob, err := r.String()
	if err != nil {
		return VerifyError, fmt.Errorf("sshkey: signature blob: %w", err)
	}
	if !r.Empty() {
		return VerifyError, fmt.Errorf("%w: %d bytes after signature", ErrTrailingData, r.Len())
	}
	if want := k.signatureFormat(); format != want {
		return VerifyError, fmt.Errorf("%w: signature type %s for key type %s", ErrTypeMismatch, format, want)
	}
	if err := checkSignatureBlob(plain, blob); err != nil {
		return VerifyError, err
	}

	cpub, err := k.CryptoPublicKey()
	if err != nil {
		return VerifyError, err
	}
	pub, err := ssh.NewPublicKey(cpub)
	if err != nil {
		return VerifyError, err
	}
	if err := pub.Verify(data, &ssh.Signature{Format: format, Blob: blob}); err != nil {
		return VerifyInvalid, nil
	}
	return VerifyValid, nil
}

var errSignatureBlob = errors.New("sshkey: malformed signature blob")

func checkSignatureBlob(t keytype.Type, blob []byte) error {
	switch t {
	case keytype.DSA:
		if len(blob) != dsaSignatureSize {
			return fmt.Errorf("%w: dsa length %d", errSignatureBlob, len(blob))
		}
	case keytype.Ed25519:
		if len(blob) != ed25519.SignatureSize {
			return fmt.Errorf("%w: ed25519 length %d", errSignatureBlob, len(blob))
		}
	case keytype.ECDSA:
		r := wire.NewReader(blob)
		if _, err := r.MPInt(); err != nil {
			return fmt.Errorf("%w: ecdsa r: %v", errSignatureBlob, err)
		}
		if _, err := r.MPInt(); err != nil {
			return fmt.Errorf("%w: ecdsa s: %v", errSignatureBlob, err)
		}
		if !r.Empty() {
			return fmt.Errorf("%w: ecdsa trailing bytes", errSignatureBlob)
		}
	case keytype.RSA:
		if len(blob) == 0 {
			return fmt.Errorf("%w: empty rsa signature", errSignatureBlob)
		}
	}
	return nil
}
