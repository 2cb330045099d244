// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/toeirei/keycore/internal/fingerprint"
	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/security"
	"github.com/toeirei/keycore/internal/sshkey"
)

// Entry is one stored key.
type Entry struct {
	bun.BaseModel `bun:"table:ssh_keys"`

	ID          int64     `bun:"id,pk,autoincrement" json:"-"`
	Name        string    `bun:"name,unique,notnull,type:varchar(255)" json:"name"`
	KeyType     string    `bun:"key_type,notnull" json:"key_type"`
	Fingerprint string    `bun:"fingerprint,notnull" json:"fingerprint"`
	PublicKey   string    `bun:"public_key,notnull,type:text" json:"public_key"`
	Comment     string    `bun:"comment" json:"comment,omitempty"`
	PrivateKey  []byte    `bun:"private_key" json:"private_key,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}

// HasPrivate reports whether the entry carries private key material.
func (e *Entry) HasPrivate() bool { return len(e.PrivateKey) > 0 }

// Key decodes the entry. Entries with private material yield a private key.
func (e *Entry) Key() (*sshkey.Key, error) {
	if e.HasPrivate() {
		return sshkey.ParsePrivate(e.PrivateKey)
	}
	want := keytype.Unspecified
	if e.KeyType == keytype.ShortName(keytype.RSA1) {
		want = keytype.RSA1
	}
	k, _, err := sshkey.ReadText(e.PublicKey, want)
	return k, err
}

// FingerprintSHA256 renders k the way current OpenSSH prints fingerprints:
// "SHA256:" followed by unpadded base64.
func FingerprintSHA256(k *sshkey.Key) (string, error) {
	raw, err := fingerprint.Raw(k, fingerprint.SHA256)
	if err != nil {
		return "", err
	}
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(raw), nil
}

// newEntry builds an Entry for k. Private material is kept only when k holds
// it in memory; agent-backed keys are stored public.
func newEntry(name string, k *sshkey.Key, comment string) (*Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("keystore: empty key name")
	}
	pub, err := sshkey.MarshalText(k)
	if err != nil {
		return nil, fmt.Errorf("keystore: encode public key: %w", err)
	}
	fp, err := FingerprintSHA256(k)
	if err != nil {
		return nil, fmt.Errorf("keystore: fingerprint: %w", err)
	}
	e := &Entry{
		Name:        name,
		KeyType:     k.ShortName(),
		Fingerprint: fp,
		PublicKey:   pub,
		Comment:     comment,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if k.Flags&sshkey.FlagExternal == 0 {
		secret, err := sshkey.MarshalPrivate(k)
		switch {
		case err == nil:
			e.PrivateKey = secret.Bytes()
			secret.Zero()
		case errors.Is(err, sshkey.ErrNotPrivate):
		default:
			return nil, fmt.Errorf("keystore: encode private key: %w", err)
		}
	}
	return e, nil
}

// Put stores k under name. An existing entry with that name yields
// ErrDuplicate.
func (s *Store) Put(ctx context.Context, name string, k *sshkey.Key, comment string) (*Entry, error) {
	e, err := newEntry(name, k, comment)
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, e); err != nil {
		security.Wipe(e.PrivateKey)
		return nil, err
	}
	logging.Debugf("keystore: stored %s (%s)", e.Name, e.Fingerprint)
	return e, nil
}

func (s *Store) insert(ctx context.Context, e *Entry) error {
	if _, err := s.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// Get returns the entry called name or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	var e Entry
	err := s.db.NewSelect().Model(&e).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		return nil, MapDBError(err)
	}
	return &e, nil
}

// FindByFingerprint returns all entries whose SHA256 fingerprint is fp.
func (s *Store) FindByFingerprint(ctx context.Context, fp string) ([]Entry, error) {
	var out []Entry
	err := s.db.NewSelect().Model(&out).Where("fingerprint = ?", fp).OrderExpr("name").Scan(ctx)
	if err != nil {
		return nil, MapDBError(err)
	}
	return out, nil
}

// List returns every entry ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	if err := s.db.NewSelect().Model(&out).OrderExpr("name").Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return out, nil
}

// Delete removes the entry called name or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.NewDelete().Model((*Entry)(nil)).Where("name = ?", name).Exec(ctx)
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
