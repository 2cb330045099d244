// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/keycore/internal/i18n"
	"github.com/toeirei/keycore/internal/sshkey"
)

// defaultUserExtensions are granted to user certificates unless
// --no-default-extensions is given.
var defaultUserExtensions = []string{
	"permit-X11-forwarding",
	"permit-agent-forwarding",
	"permit-port-forwarding",
	"permit-pty",
	"permit-user-rc",
}

// nowFunc is replaced in tests.
var nowFunc = time.Now

// parseTimeSpec accepts "forever", "always", RFC3339, a date (YYYY-MM-DD),
// Unix seconds, or a duration relative to now prefixed with + or -.
func parseTimeSpec(s string) (uint64, error) {
	switch strings.ToLower(s) {
	case "forever":
		return math.MaxUint64, nil
	case "always", "":
		return 0, nil
	}
	if s[0] == '+' || s[0] == '-' {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		if s[0] == '-' {
			d = -d
		}
		return uint64(max(nowFunc().Add(d).Unix(), 0)), nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return uint64(max(t.Unix(), 0)), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

// buildOptions turns "name" and "name=value" specs into a sorted option
// list, the order OpenSSH requires.
func buildOptions(specs []string) ([]sshkey.Option, error) {
	seen := make(map[string]bool, len(specs))
	opts := make([]sshkey.Option, 0, len(specs))
	for _, s := range specs {
		name, value, hasValue := strings.Cut(s, "=")
		if name == "" {
			return nil, fmt.Errorf("invalid option %q", s)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate option %q", name)
		}
		seen[name] = true
		if hasValue {
			opts = append(opts, sshkey.StringOption(name, value))
		} else {
			opts = append(opts, sshkey.FlagOption(name))
		}
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Name < opts[j].Name })
	return opts, nil
}

func certPath(pubPath string) string {
	return strings.TrimSuffix(pubPath, ".pub") + "-cert.pub"
}

func newCertifyCmd() *cobra.Command {
	var (
		caPath, caPass, identity, outPath string
		validAfter, validBefore           string
		principals, critical, extensions  []string
		serial                            uint64
		host, legacy, noDefaultExt, force bool
	)
	cmd := &cobra.Command{
		Use:   "certify <public-key-file>",
		Short: i18n.T("cli.certify.short"),
		Long: `Signs a public key with a CA private key and writes the certificate next to
the input as <name>-cert.pub.

Times accept "always", "forever", RFC3339, YYYY-MM-DD, Unix seconds or a
duration relative to now such as +24h or -5m.

Examples:
  keycore certify --ca ca_key -I alice -n alice,admin --valid-before +8760h id_ed25519.pub
  keycore certify --ca ca_key --host -I web1 -n web1.example.org ssh_host_ed25519_key.pub`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if caPath == "" {
				return errors.New("--ca is required")
			}
			after, err := parseTimeSpec(validAfter)
			if err != nil {
				return err
			}
			before, err := parseTimeSpec(validBefore)
			if err != nil {
				return err
			}
			if before <= after {
				return fmt.Errorf("empty validity interval")
			}
			critOpts, err := buildOptions(critical)
			if err != nil {
				return err
			}
			if !host && !noDefaultExt {
				for _, d := range defaultUserExtensions {
					if !optionNamed(extensions, d) {
						extensions = append(extensions, d)
					}
				}
			}
			extOpts, err := buildOptions(extensions)
			if err != nil {
				return err
			}

			ca, err := readKey(cmd, caPath, caPass)
			if err != nil {
				return err
			}
			defer ca.Key.Destroy()
			if !ca.Key.IsPrivate() {
				return fmt.Errorf("%s: %w", caPath, sshkey.ErrNotPrivate)
			}

			subject, err := readKey(cmd, args[0], "")
			if err != nil {
				return err
			}
			k := sshkey.FromPrivate(subject.Key)
			subject.Key.Destroy()
			defer k.Destroy()
			if k.IsCert() {
				if err := sshkey.DropCert(k); err != nil {
					return err
				}
			}
			if err := sshkey.ToCertified(k, legacy); err != nil {
				return err
			}

			c := k.Cert
			c.Type = sshkey.UserCert
			if host {
				c.Type = sshkey.HostCert
			}
			c.Serial = serial
			c.KeyID = identity
			c.Principals = principals
			c.ValidAfter = after
			c.ValidBefore = before
			c.Critical = sshkey.EncodeOptions(critOpts)
			c.Extensions = sshkey.EncodeOptions(extOpts)
			if err := sshkey.Certify(k, ca.Key); err != nil {
				return err
			}

			line, err := sshkey.AuthorizedKey(k, subject.Comment)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = certPath(args[0])
			}
			if outPath == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), line)
				return nil
			}
			if err := writeFile(outPath, []byte(line+"\n"), 0o644, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("msg.cert_written", map[string]any{"Path": outPath}))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&caPath, "ca", "", "CA private key file")
	f.StringVar(&caPass, "ca-passphrase", "", "Passphrase for the CA key")
	f.StringVarP(&identity, "identity", "I", "", "Key identity recorded in the certificate")
	f.StringSliceVarP(&principals, "principals", "n", nil, "Comma separated user or host names")
	f.Uint64VarP(&serial, "serial", "z", 0, "Serial number")
	f.BoolVar(&host, "host", false, "Issue a host certificate")
	f.BoolVar(&legacy, "legacy", false, "Issue a v00 certificate (RSA and DSA only)")
	f.StringVar(&validAfter, "valid-after", "always", "Start of the validity interval")
	f.StringVar(&validBefore, "valid-before", "forever", "End of the validity interval (exclusive)")
	f.StringArrayVarP(&critical, "critical", "O", nil, "Critical option name[=value], repeatable")
	f.StringArrayVar(&extensions, "extension", nil, "Extension name[=value], repeatable")
	f.BoolVar(&noDefaultExt, "no-default-extensions", false, "Do not add the default user extensions")
	f.StringVarP(&outPath, "output", "o", "", `Certificate output file ("-" for stdout)`)
	f.BoolVar(&force, "force", false, "Overwrite an existing certificate file")
	return cmd
}

func optionNamed(specs []string, name string) bool {
	for _, s := range specs {
		if n, _, _ := strings.Cut(s, "="); n == name {
			return true
		}
	}
	return false
}

func newCheckCmd() *cobra.Command {
	var (
		host, requirePrincipal bool
		principal              string
	)
	cmd := &cobra.Command{
		Use:   "check <certificate-file>",
		Short: i18n.T("cli.check.short"),
		Long: `Checks whether a certificate is currently usable as a user (default) or host
certificate, optionally for a given principal. The exit status is non-zero
when the certificate is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readKey(cmd, args[0], "")
			if err != nil {
				return err
			}
			defer e.Key.Destroy()
			if !e.Key.IsCert() {
				return fmt.Errorf("%s: %w", args[0], sshkey.ErrNotCertificate)
			}
			out := cmd.OutOrStdout()
			st := newStyles(out)
			ok, reason := e.Key.CheckAuthority(host, requirePrincipal, principal)
			if !ok {
				fmt.Fprintln(out, st.fail.Render(i18n.T("msg.check_failed", map[string]any{"Reason": reason})))
				return errReported
			}
			fmt.Fprintln(out, st.ok.Render(i18n.T("msg.check_ok")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&host, "host", false, "Require a host certificate")
	cmd.Flags().StringVarP(&principal, "principal", "n", "", "Name that must be a listed principal")
	cmd.Flags().BoolVar(&requirePrincipal, "require-principal", false, "Reject certificates without principals")
	return cmd
}
