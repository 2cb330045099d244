// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toeirei/keycore/internal/agentkeys"
	"github.com/toeirei/keycore/internal/fingerprint"
	"github.com/toeirei/keycore/internal/i18n"
)

// connectAgent is replaced in tests.
var connectAgent = agentkeys.Connect

func openAgent() (*agentkeys.Client, error) {
	c, err := connectAgent()
	if errors.Is(err, agentkeys.ErrNoAgent) {
		return nil, fmt.Errorf("%s: %w", i18n.T("msg.no_agent"), err)
	}
	return c, err
}

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: i18n.T("cli.agent.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openAgent()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			ids, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			h, _ := fingerprint.ParseHash(appConfig.Fingerprint.Hash)
			out := cmd.OutOrStdout()
			for _, id := range ids {
				if err := printFingerprint(out, publicEntry{Key: id.Key, Comment: id.Comment}, h, fingerprint.Hex); err != nil {
					return err
				}
			}
			return nil
		},
	}

	var comment, passphrase string
	add := &cobra.Command{
		Use:   "add <private-key-file>",
		Short: "Load a private key into the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readKey(cmd, args[0], passphrase)
			if err != nil {
				return err
			}
			defer e.Key.Destroy()
			c, err := openAgent()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if comment == "" {
				comment = args[0]
			}
			return c.Add(e.Key, comment)
		},
	}
	add.Flags().StringVarP(&comment, "comment", "C", "", "Comment shown by the agent (default file name)")
	add.Flags().StringVarP(&passphrase, "passphrase", "P", "", "Passphrase for the private key")
	cmd.AddCommand(add)
	return cmd
}
