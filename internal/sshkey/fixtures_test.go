// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"sync"
	"testing"
	"time"

	"github.com/toeirei/keycore/internal/keytype"
)

type fixture struct {
	name string
	typ  keytype.Type
	bits int
}

// fixtureSpecs covers every plain signable key type.
var fixtureSpecs = []fixture{
	{"rsa", keytype.RSA, 2048},
	{"dsa", keytype.DSA, 1024},
	{"ecdsa256", keytype.ECDSA, 256},
	{"ecdsa384", keytype.ECDSA, 384},
	{"ecdsa521", keytype.ECDSA, 521},
	{"ed25519", keytype.Ed25519, 0},
}

var (
	fixtureOnce sync.Once
	fixtureKeys map[string]*Key
	fixtureErr  error
)

// testKey returns a shared generated key. Tests that mutate keys must work
// on a copy from clonePrivate.
func testKey(t *testing.T, name string) *Key {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureKeys = make(map[string]*Key)
		for _, f := range fixtureSpecs {
			k, err := Generate(f.typ, f.bits)
			if err != nil {
				fixtureErr = err
				return
			}
			fixtureKeys[f.name] = k
		}
	})
	if fixtureErr != nil {
		t.Fatalf("generate fixtures: %v", fixtureErr)
	}
	k, ok := fixtureKeys[name]
	if !ok {
		t.Fatalf("no fixture %q", name)
	}
	return k
}

func clonePrivate(t *testing.T, k *Key) *Key {
	t.Helper()
	blob, err := MarshalPrivate(k)
	if err != nil {
		t.Fatalf("MarshalPrivate: %v", err)
	}
	defer blob.Zero()
	c, err := ParsePrivate(blob)
	if err != nil {
		t.Fatalf("ParsePrivate: %v", err)
	}
	return c
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func setNow(t *testing.T, unix int64) {
	t.Helper()
	SetClock(fixedClock{time.Unix(unix, 0)})
	t.Cleanup(ResetClock)
}
