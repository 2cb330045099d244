// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/toeirei/keycore/buildvars"
	"github.com/toeirei/keycore/internal/config"
	"github.com/toeirei/keycore/internal/i18n"
	"github.com/toeirei/keycore/internal/logging"
	"github.com/toeirei/keycore/internal/sshkey"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
)

// errReported marks failures whose message was already printed.
var errReported = errors.New("reported")

// setupDefaultServices loads configuration and applies it to the logging,
// i18n and decoding layers. It runs before every command.
func setupDefaultServices(cmd *cobra.Command, _ []string) error {
	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}
	c, err := config.LoadConfig[config.Config](cmd, config.Defaults(), path)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	appConfig = c

	if verbose {
		logging.SetDebug(true)
	} else if err := logging.SetLevel(c.Log.Level); err != nil {
		return err
	}
	i18n.Init(c.Language)
	sshkey.DefaultDecoder.Strict = c.Decode.Strict
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// Execute runs the CLI and reports a failed command on stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, errReported) {
		logging.Errorf("%v", err)
	}
	return err
}

// NewRootCmd builds a fresh command tree. Tests call it once per run so no
// flag state leaks between invocations.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keycore",
		Short: i18n.T("cli.root.short"),
		Long: `keycore reads, writes, generates, certifies and fingerprints SSH keys.
It understands RSA, DSA, ECDSA and Ed25519 keys in the SSH wire and text
formats, OpenSSH v01 and legacy v00 certificates, and can keep keys in a
SQLite, PostgreSQL or MySQL backed store.`,
		PersistentPreRunE: setupDefaultServices,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	v, c, d := resolveBuildVersion(nil)
	cmd.Version = compositeVersion(v, c, d)

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `Output language ("en", "de")`)
	cmd.PersistentFlags().String("log.level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("decode.strict", true, "Reject key blobs with trailing bytes")
	cmd.PersistentFlags().String("keystore.type", "sqlite", "Key store database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("keystore.dsn", "keycore.db", "Key store connection string (DSN)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newKeygenCmd(),
		newFingerprintCmd(),
		newInspectCmd(),
		newCertifyCmd(),
		newCheckCmd(),
		newAlgorithmsCmd(),
		newSignCmd(),
		newVerifyCmd(),
		newAgentCmd(),
		newStoreCmd(),
		newConfigCmd(),
		versionCmd,
	)
	return cmd
}

func compositeVersion(v, c, d string) string {
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, it reads build info from
// the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// Fall back to the commit when nothing better is known.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
