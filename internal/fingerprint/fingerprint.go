// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fingerprint derives key fingerprints and renders them as hex,
// bubblebabble or randomart.
package fingerprint // import "github.com/toeirei/keycore/internal/fingerprint"

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/security"
	"github.com/toeirei/keycore/internal/sshkey"
)

// Hash selects the digest algorithm.
type Hash int

const (
	MD5 Hash = iota
	SHA1
	SHA256
)

// Representation selects the output rendering.
type Representation int

const (
	Hex Representation = iota
	BubbleBabble
	RandomArt
)

var (
	ErrUnknownHash           = errors.New("fingerprint: unknown hash")
	ErrUnknownRepresentation = errors.New("fingerprint: unknown representation")
)

var hashNames = map[Hash]string{MD5: "md5", SHA1: "sha1", SHA256: "sha256"}

var repNames = map[Representation]string{Hex: "hex", BubbleBabble: "bubblebabble", RandomArt: "randomart"}

func (h Hash) String() string {
	if n, ok := hashNames[h]; ok {
		return n
	}
	return "unknown"
}

func (r Representation) String() string {
	if n, ok := repNames[r]; ok {
		return n
	}
	return "unknown"
}

// ParseHash maps "md5", "sha1" or "sha256" (any case) to a Hash.
func ParseHash(s string) (Hash, error) {
	for h, n := range hashNames {
		if strings.EqualFold(n, s) {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownHash, s)
}

// ParseRepresentation maps "hex", "bubblebabble" or "randomart" to a
// Representation. "art" and "bubble" are accepted as short forms.
func ParseRepresentation(s string) (Representation, error) {
	switch strings.ToLower(s) {
	case "hex":
		return Hex, nil
	case "bubblebabble", "bubble":
		return BubbleBabble, nil
	case "randomart", "art":
		return RandomArt, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRepresentation, s)
}

func (h Hash) new() hash.Hash {
	switch h {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	default:
		panic(fmt.Sprintf("fingerprint: bad digest type %d", int(h)))
	}
}

// Raw returns the digest identifying k. RSA1 keys hash the modulus followed
// by the exponent; other keys hash their public blob. Certificates hash the
// blob of the certified key, so a certificate and its key share a
// fingerprint.
func Raw(k *sshkey.Key, h Hash) ([]byte, error) {
	var blob []byte
	switch keytype.Plain(k.Type) {
	case keytype.RSA1:
		if k.RSA == nil || k.RSA.N == nil || k.RSA.E == nil {
			return nil, fmt.Errorf("%w: missing rsa1 material", sshkey.ErrIncompleteKey)
		}
		blob = append(k.RSA.N.Bytes(), k.RSA.E.Bytes()...)
	case keytype.RSA, keytype.DSA, keytype.ECDSA, keytype.Ed25519:
		var err error
		if blob, err = sshkey.EncodeBlob(k, true); err != nil {
			return nil, err
		}
	case keytype.Unspecified:
		return nil, fmt.Errorf("%w: key type unspecified", sshkey.ErrIncompleteKey)
	default:
		panic(fmt.Sprintf("fingerprint: bad key type %d", int(k.Type)))
	}
	d := h.new()
	d.Write(blob)
	security.Wipe(blob)
	return d.Sum(nil), nil
}

// Fingerprint renders the digest of k using representation r.
func Fingerprint(k *sshkey.Key, h Hash, r Representation) (string, error) {
	raw, err := Raw(k, h)
	if err != nil {
		return "", err
	}
	defer security.Wipe(raw)
	switch r {
	case Hex:
		return FormatHex(raw), nil
	case BubbleBabble:
		return FormatBubbleBabble(raw), nil
	case RandomArt:
		return FormatRandomArt(raw, keytype.ShortName(k.Type), k.Size()), nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownRepresentation, int(r))
	}
}

// FormatHex formats d as lowercase hex octets joined by colons.
func FormatHex(d []byte) string {
	var sb strings.Builder
	sb.Grow(len(d) * 3)
	for i, b := range d {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
