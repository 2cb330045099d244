// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/sshkey"
)

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	priv := genKey(t, keytype.Ed25519)
	pub := sshkey.FromPrivate(genKey(t, keytype.ECDSA))
	if _, err := src.Put(ctx, "priv", priv, "with secret"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := src.Put(ctx, "pub", pub, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var buf bytes.Buffer
	n, err := src.WriteBackup(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("WriteBackup: n=%d err=%v", n, err)
	}
	raw := buf.Bytes()

	dst := openTestStore(t)
	restored, err := dst.ReadBackup(ctx, bytes.NewReader(raw))
	if err != nil || restored != 2 {
		t.Fatalf("ReadBackup: n=%d err=%v", restored, err)
	}
	e, err := dst.Get(ctx, "priv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	k, err := e.Key()
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if !k.IsPrivate() || !sshkey.EqualPublic(k, priv) || e.Comment != "with secret" {
		t.Fatalf("private entry not restored intact")
	}

	again, err := dst.ReadBackup(ctx, bytes.NewReader(raw))
	if err != nil || again != 0 {
		t.Fatalf("second restore should skip existing keys: n=%d err=%v", again, err)
	}
}

func TestReadBackupRejectsGarbage(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ReadBackup(context.Background(), bytes.NewReader([]byte("not a backup"))); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func compressed(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestReadBackupRejectsVersion(t *testing.T) {
	s := openTestStore(t)
	data := compressed(t, Backup{Version: BackupVersion + 1})
	if _, err := s.ReadBackup(context.Background(), bytes.NewReader(data)); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestReadBackupCorruptEntryChangesNothing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	good, err := newEntry("good", sshkey.FromPrivate(genKey(t, keytype.Ed25519)), "")
	if err != nil {
		t.Fatalf("newEntry: %v", err)
	}
	bad := Entry{Name: "bad", KeyType: "ED25519", PublicKey: "ssh-ed25519 AAAA"}
	data := compressed(t, Backup{Version: BackupVersion, Entries: []Entry{*good, bad}})

	if _, err := s.ReadBackup(ctx, bytes.NewReader(data)); err == nil {
		t.Fatalf("expected error for corrupt entry")
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("corrupt backup inserted %d entries", len(all))
	}
}
