// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/keycore/internal/logging"
)

// BackupVersion is written into every backup and checked on restore.
const BackupVersion = 1

// Backup is the JSON document inside a backup file.
type Backup struct {
	Version int       `json:"version"`
	Created time.Time `json:"created"`
	Entries []Entry   `json:"entries"`
}

// WriteBackup writes every entry as zstd-compressed JSON to w and returns the
// number of entries written.
func (s *Store) WriteBackup(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	data := Backup{Version: BackupVersion, Created: time.Now().UTC(), Entries: entries}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&data); err != nil {
		_ = zw.Close()
		return 0, fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("flush backup: %w", err)
	}
	return len(entries), nil
}

// ReadBackup restores entries from a backup written by WriteBackup. Entries
// whose name already exists are skipped. Every entry is decoded before
// anything is inserted, so a corrupt backup changes nothing.
func (s *Store) ReadBackup(ctx context.Context, r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	var data Backup
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode backup: %w", err)
	}
	if data.Version != BackupVersion {
		return 0, fmt.Errorf("keystore: unsupported backup version %d", data.Version)
	}
	for i := range data.Entries {
		k, err := data.Entries[i].Key()
		if err != nil {
			return 0, fmt.Errorf("keystore: backup entry %q: %w", data.Entries[i].Name, err)
		}
		k.Destroy()
	}

	restored := 0
	for i := range data.Entries {
		e := data.Entries[i]
		e.ID = 0
		if err := s.insert(ctx, &e); err != nil {
			if errors.Is(err, ErrDuplicate) {
				logging.Warnf("keystore: skipping existing key %q", e.Name)
				continue
			}
			return restored, err
		}
		restored++
	}
	return restored, nil
}
