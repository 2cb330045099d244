// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/keycore/internal/i18n"
	"github.com/toeirei/keycore/internal/keystore"
	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/sshkey"
)

func openStore(ctx context.Context) (*keystore.Store, error) {
	return keystore.Open(ctx, appConfig.Keystore.Type, appConfig.Keystore.Dsn)
}

// withStore opens the configured keystore for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*keystore.Store) error) error {
	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logging.Warnf("keystore close: %v", err)
		}
	}()
	return fn(s)
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: i18n.T("cli.store.short"),
	}
	cmd.AddCommand(
		newStoreAddCmd(),
		newStoreListCmd(),
		newStoreShowCmd(),
		newStoreRmCmd(),
		newStoreBackupCmd(),
		newStoreRestoreCmd(),
	)
	return cmd
}

func newStoreAddCmd() *cobra.Command {
	var comment, passphrase string
	var publicOnly bool
	cmd := &cobra.Command{
		Use:   "add <name> <file>",
		Short: i18n.T("cli.store.add.short"),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readKey(cmd, args[1], passphrase)
			if err != nil {
				return err
			}
			k := e.Key
			defer k.Destroy()
			if publicOnly && k.IsPrivate() {
				pub := sshkey.Demote(k)
				defer pub.Destroy()
				k = pub
			}
			if comment == "" {
				comment = e.Comment
			}
			return withStore(cmd, func(s *keystore.Store) error {
				fp, err := keystore.FingerprintSHA256(k)
				if err != nil {
					return err
				}
				if dups, err := s.FindByFingerprint(cmd.Context(), fp); err == nil {
					for _, d := range dups {
						logging.Warnf("key %s is already stored as %q", fp, d.Name)
					}
				}
				entry, err := s.Put(cmd.Context(), args[0], k, comment)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("msg.store_added", map[string]any{
					"Name":        entry.Name,
					"Fingerprint": entry.Fingerprint,
				}))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "C", "", "Comment (default from the key file)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "P", "", "Passphrase for an encrypted private key")
	cmd.Flags().BoolVar(&publicOnly, "public", false, "Store only the public half")
	return cmd
}

func newStoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("cli.store.list.short"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *keystore.Store) error {
				entries, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, i18n.T("msg.store_empty"))
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, e := range entries {
					priv := ""
					if e.HasPrivate() {
						priv = "private"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.KeyType, e.Fingerprint, priv, e.Comment)
				}
				return tw.Flush()
			})
		},
	}
}

func newStoreShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: i18n.T("cli.store.show.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *keystore.Store) error {
				entry, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				k, err := entry.Key()
				if err != nil {
					return err
				}
				defer k.Destroy()
				out := cmd.OutOrStdout()
				st := newStyles(out)
				if err := describeKey(out, st, publicEntry{Key: k, Comment: entry.Comment}); err != nil {
					return err
				}
				st.field(out, i18n.T("label.added"), entry.CreatedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newStoreRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   i18n.T("cli.store.rm.short"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *keystore.Store) error {
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("msg.store_removed", map[string]any{"Name": args[0]}))
				return nil
			})
		},
	}
}

func newStoreBackupCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "backup [file]",
		Short: i18n.T("cli.store.backup.short"),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("keycore-backup-%s.json.zst", nowFunc().Format("2006-01-02"))
			if len(args) == 1 {
				path = args[0]
				if !strings.HasSuffix(path, ".zst") {
					path += ".zst"
				}
			}
			return withStore(cmd, func(s *keystore.Store) error {
				flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
				if force {
					flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
				}
				f, err := os.OpenFile(path, flags, 0o600)
				if err != nil {
					return err
				}
				n, err := s.WriteBackup(cmd.Context(), f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					_ = os.Remove(path)
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("msg.backup_written", map[string]any{"Count": n, "Path": path}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing backup file")
	return cmd
}

func newStoreRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: i18n.T("cli.store.restore.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			return withStore(cmd, func(s *keystore.Store) error {
				n, err := s.ReadBackup(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("msg.restore_done", map[string]any{"Count": n}))
				return nil
			})
		},
	}
}
