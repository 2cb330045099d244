// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/toeirei/keycore/internal/fingerprint"
	"github.com/toeirei/keycore/internal/i18n"
	"github.com/toeirei/keycore/internal/keytype"
	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/sshkey"
)

// clipboardWriter is replaced in tests.
var clipboardWriter = clipboard.WriteAll

func defaultComment() string {
	name := "keycore"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return name + "@" + host
	}
	return name
}

func newKeygenCmd() *cobra.Command {
	var (
		typeName   string
		bits       int
		outPath    string
		comment    string
		passphrase string
		ask        bool
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: i18n.T("cli.keygen.short"),
		Long: `Generates a key pair and writes the private key as an OpenSSH private key
file and the public key to the same path with ".pub" appended.

Examples:
  keycore keygen -t ed25519 -f id_ed25519
  keycore keygen -t ecdsa -b 384 -f host_key -C host.example.org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := keytype.FromName(typeName)
			switch t {
			case keytype.Unspecified:
				return fmt.Errorf("%w: %q", sshkey.ErrUnknownType, typeName)
			case keytype.RSA1, keytype.DSA:
				// Neither has an OpenSSH private key file encoding.
				return fmt.Errorf("%w: key files for %s keys", sshkey.ErrUnsupported, keytype.ShortName(t))
			}
			if bits == 0 {
				bits = sshkey.DefaultBits(t)
			}
			if outPath == "" {
				outPath = "id_" + strings.ToLower(keytype.ShortName(t))
			}
			if !cmd.Flags().Changed("comment") {
				comment = defaultComment()
			}

			pass := []byte(passphrase)
			if ask {
				var err error
				if pass, err = promptPassphrase(cmd, true); err != nil {
					return err
				}
			}

			k, err := sshkey.Generate(t, bits)
			if err != nil {
				return err
			}
			defer k.Destroy()

			priv, err := sshkey.MarshalPEM(k, comment, pass)
			if err != nil {
				return err
			}
			defer priv.Zero()
			pub, err := sshkey.AuthorizedKey(k, comment)
			if err != nil {
				return err
			}

			if err := priv.Use(func(b []byte) error {
				return writeFile(outPath, b, 0o600, force)
			}); err != nil {
				return err
			}
			if err := writeFile(outPath+".pub", []byte(pub+"\n"), 0o644, force); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("msg.key_written", map[string]any{"Path": outPath}))
			fmt.Fprintln(out, i18n.T("msg.key_written", map[string]any{"Path": outPath + ".pub"}))
			h, _ := fingerprint.ParseHash(appConfig.Fingerprint.Hash)
			if err := printFingerprint(out, publicEntry{Key: k, Comment: comment}, h, fingerprint.Hex); err != nil {
				return err
			}
			art, err := fingerprint.Fingerprint(k, h, fingerprint.RandomArt)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, art)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "ed25519", "Key type (rsa, ecdsa, ed25519)")
	cmd.Flags().IntVarP(&bits, "bits", "b", 0, "Key size in bits (0 selects the default for the type)")
	cmd.Flags().StringVarP(&outPath, "file", "f", "", "Output file for the private key")
	cmd.Flags().StringVarP(&comment, "comment", "C", "", "Key comment (default user@host)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "N", "", "Passphrase to encrypt the private key")
	cmd.Flags().BoolVar(&ask, "ask-passphrase", false, "Prompt for the passphrase")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

// printFingerprint writes "<bits> <fingerprint> <comment> (<TYPE>)", and the
// art below it for the randomart representation.
func printFingerprint(w io.Writer, e publicEntry, h fingerprint.Hash, r fingerprint.Representation) error {
	fp, err := fingerprint.Fingerprint(e.Key, h, fingerprint.Hex)
	if err != nil {
		return err
	}
	comment := e.Comment
	if comment == "" {
		comment = "no comment"
	}
	switch r {
	case fingerprint.Hex:
	case fingerprint.BubbleBabble:
		if fp, err = fingerprint.Fingerprint(e.Key, h, r); err != nil {
			return err
		}
	case fingerprint.RandomArt:
		art, err := fingerprint.Fingerprint(e.Key, h, r)
		if err != nil {
			return err
		}
		defer fmt.Fprintln(w, art)
	}
	fmt.Fprintf(w, "%d %s %s (%s)\n", e.Key.Size(), fp, comment, e.Key.ShortName())
	return nil
}

func newFingerprintCmd() *cobra.Command {
	var (
		hashName, formatName, passphrase string
		copyToClipboard                  bool
	)
	cmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: i18n.T("cli.fingerprint.short"),
		Long: `Prints the fingerprint of every key in a public key, authorized_keys or
private key file. Use "-" to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("hash") {
				hashName = appConfig.Fingerprint.Hash
			}
			if !cmd.Flags().Changed("format") {
				formatName = appConfig.Fingerprint.Format
			}
			h, err := fingerprint.ParseHash(hashName)
			if err != nil {
				return err
			}
			r, err := fingerprint.ParseRepresentation(formatName)
			if err != nil {
				return err
			}
			keys, err := readKeys(cmd, args[0], passphrase)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var last string
			for _, e := range keys {
				if err := printFingerprint(out, e, h, r); err != nil {
					return err
				}
				if last, err = fingerprint.Fingerprint(e.Key, h, fingerprint.Hex); err != nil {
					return err
				}
				e.Key.Destroy()
			}
			if copyToClipboard {
				if err := clipboardWriter(last); err != nil {
					logging.Warnf("clipboard: %v", err)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("msg.copied"))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&hashName, "hash", "E", "md5", "Digest (md5, sha1, sha256)")
	cmd.Flags().StringVar(&formatName, "format", "hex", "Representation (hex, bubblebabble, randomart)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "P", "", "Passphrase for encrypted private keys")
	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy the last hex fingerprint to the clipboard")
	return cmd
}

func newAlgorithmsCmd() *cobra.Command {
	var certsOnly, plainOnly bool
	var check string
	cmd := &cobra.Command{
		Use:   "algorithms",
		Short: i18n.T("cli.algorithms.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("check") {
				st := newStyles(out)
				if !keytype.NamesValid(check) {
					fmt.Fprintln(out, st.fail.Render(i18n.T("msg.algorithms_invalid", map[string]any{"List": check})))
					return errReported
				}
				fmt.Fprintln(out, st.ok.Render(i18n.T("msg.algorithms_valid")))
				return nil
			}
			if certsOnly && plainOnly {
				return fmt.Errorf("--certs and --plain are mutually exclusive")
			}
			fmt.Fprintln(out, keytype.AlgorithmList(certsOnly, plainOnly))
			return nil
		},
	}
	cmd.Flags().BoolVar(&certsOnly, "certs", false, "Only list certificate algorithms")
	cmd.Flags().BoolVar(&plainOnly, "plain", false, "Only list plain key algorithms")
	cmd.Flags().StringVar(&check, "check", "", "Check a comma-separated algorithm list")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: i18n.T("cli.inspect.short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := readKeys(cmd, args[0], passphrase)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st := newStyles(out)
			for i, e := range keys {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := describeKey(out, st, e); err != nil {
					return err
				}
				e.Key.Destroy()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&passphrase, "passphrase", "P", "", "Passphrase for encrypted private keys")
	return cmd
}

func describeKey(w io.Writer, st styles, e publicEntry) error {
	k := e.Key
	fp, err := fingerprint.Fingerprint(k, fingerprint.SHA256, fingerprint.Hex)
	if err != nil {
		return err
	}
	st.field(w, i18n.T("label.type"), k.ShortName())
	st.field(w, i18n.T("label.bits"), fmt.Sprint(k.Size()))
	st.field(w, i18n.T("label.fingerprint"), fp)
	if e.Comment != "" {
		st.field(w, i18n.T("label.comment"), e.Comment)
	}
	if !k.IsCert() {
		return nil
	}

	c := k.Cert
	st.field(w, i18n.T("label.cert_type"), k.CertTypeName())
	st.field(w, i18n.T("label.serial"), fmt.Sprint(c.Serial))
	st.field(w, i18n.T("label.key_id"), fmt.Sprintf("%q", c.KeyID))
	if c.SignatureKey != nil {
		caFP, err := fingerprint.Fingerprint(c.SignatureKey, fingerprint.SHA256, fingerprint.Hex)
		if err != nil {
			return err
		}
		st.field(w, i18n.T("label.signing_ca"), c.SignatureKey.ShortName()+" "+caFP)
	}
	st.field(w, i18n.T("label.valid"), validity(c.ValidAfter, c.ValidBefore))
	principals := i18n.T("label.none")
	if len(c.Principals) > 0 {
		principals = strings.Join(c.Principals, ", ")
	}
	st.field(w, i18n.T("label.principals"), principals)
	for _, sec := range []struct {
		label string
		raw   []byte
	}{{"label.critical", c.Critical}, {"label.extensions", c.Extensions}} {
		opts, err := sshkey.ParseOptions(sec.raw)
		if err != nil {
			return err
		}
		st.field(w, i18n.T(sec.label), describeOptions(opts, st))
	}
	return nil
}

func describeOptions(opts []sshkey.Option, st styles) string {
	if len(opts) == 0 {
		return i18n.T("label.none")
	}
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		v, err := o.Value()
		switch {
		case err != nil:
			parts = append(parts, o.Name+" "+st.dim.Render(fmt.Sprintf("(%d bytes)", len(o.Data))))
		case v != "":
			parts = append(parts, o.Name+"="+v)
		default:
			parts = append(parts, o.Name)
		}
	}
	return strings.Join(parts, ", ")
}

const timeLayout = "2006-01-02T15:04:05"

func validity(after, before uint64) string {
	if after == 0 && before == math.MaxUint64 {
		return i18n.T("label.forever")
	}
	from := time.Unix(int64(min(after, math.MaxInt64)), 0).UTC().Format(timeLayout)
	to := i18n.T("label.forever")
	if before != math.MaxUint64 {
		to = time.Unix(int64(min(before, math.MaxInt64)), 0).UTC().Format(timeLayout)
	}
	return "from " + from + " to " + to
}
