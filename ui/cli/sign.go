// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toeirei/keycore/internal/i18n"
	"github.com/toeirei/keycore/internal/sshkey"
)

func newSignCmd() *cobra.Command {
	var keyPath, passphrase, inPath string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: i18n.T("cli.sign.short"),
		Long: `Signs the input with a private key and prints the SSH signature
(string format, string blob) as base64.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readKey(cmd, keyPath, passphrase)
			if err != nil {
				return err
			}
			defer e.Key.Destroy()
			data, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			sig, err := sshkey.Sign(e.Key, data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(sig))
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "Private key file")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "P", "", "Passphrase for the private key")
	cmd.Flags().StringVar(&inPath, "in", "-", `Data to sign ("-" for stdin)`)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var keyPath, sigPath, inPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: i18n.T("cli.verify.short"),
		Long: `Verifies a base64 signature produced by "keycore sign". The exit status is
non-zero for a wrong signature and for a malformed one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readKey(cmd, keyPath, "")
			if err != nil {
				return err
			}
			defer e.Key.Destroy()
			rawSig, err := readInput(cmd, sigPath)
			if err != nil {
				return err
			}
			sig, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(rawSig)))
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}
			data, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := newStyles(out)
			res, err := sshkey.Verify(e.Key, sig, data)
			switch res {
			case sshkey.VerifyValid:
				fmt.Fprintln(out, st.ok.Render(i18n.T("msg.signature_valid")))
				return nil
			case sshkey.VerifyInvalid:
				fmt.Fprintln(out, st.fail.Render(i18n.T("msg.signature_invalid")))
				return errReported
			default:
				if err == nil {
					err = errors.New("signature verification failed")
				}
				return err
			}
		},
	}
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "Public or private key file")
	cmd.Flags().StringVarP(&sigPath, "sig", "s", "", "Signature file")
	cmd.Flags().StringVar(&inPath, "in", "-", `Signed data ("-" for stdin)`)
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("sig")
	return cmd
}
