// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads keycore settings from defaults, config files,
// KEYCORE_* environment variables and command flags, in increasing order of
// precedence.
package config // import "github.com/toeirei/keycore/internal/config"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	clog "github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/keycore/internal/fingerprint"
	"github.com/toeirei/keycore/internal/i18n"
)

// Config is the complete set of tunables.
type Config struct {
	Log struct {
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"log" yaml:"log"`
	Language string `mapstructure:"language" yaml:"language"`
	Decode   struct {
		Strict bool `mapstructure:"strict" yaml:"strict"`
	} `mapstructure:"decode" yaml:"decode"`
	Fingerprint struct {
		Hash   string `mapstructure:"hash" yaml:"hash"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"fingerprint" yaml:"fingerprint"`
	Keystore struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"keystore" yaml:"keystore"`
}

var ErrInvalid = errors.New("config: invalid value")

// Defaults returns the built-in values keyed by their dotted viper path.
func Defaults() map[string]any {
	return map[string]any{
		"log.level":          "info",
		"language":           "en",
		"decode.strict":      true,
		"fingerprint.hash":   "md5",
		"fingerprint.format": "hex",
		"keystore.type":      "sqlite",
		"keystore.dsn":       "keycore.db",
	}
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	if _, err := clog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if _, err := fingerprint.ParseHash(c.Fingerprint.Hash); err != nil {
		return fmt.Errorf("%w: fingerprint.hash: %v", ErrInvalid, err)
	}
	if _, err := fingerprint.ParseRepresentation(c.Fingerprint.Format); err != nil {
		return fmt.Errorf("%w: fingerprint.format: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.Keystore.Type) {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("%w: keystore.type %q", ErrInvalid, c.Keystore.Type)
	}
	if _, ok := i18n.GetAvailableLocales()[c.Language]; !ok {
		return fmt.Errorf("%w: language %q", ErrInvalid, c.Language)
	}
	return nil
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "keycore")
		default:
			configDir = "/etc/keycore"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "keycore")
	}

	return filepath.Join(configDir, "keycore.yaml"), nil
}

// LoadConfig layers defaults, the first keycore.yaml found (or explicitPath
// when set), a .keycore.yaml in the working directory, KEYCORE_* variables
// and the flags of cmd, then decodes the result into T.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("keycore")
	v.SetConfigType("yaml")

	if explicitPath != nil && *explicitPath != "" {
		v.SetConfigFile(*explicitPath)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, a broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	mergeLocalConfig(v)

	v.SetEnvPrefix("keycore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// mergeLocalConfig merges ./.keycore.yaml over whatever was read so far.
// A malformed file is ignored so a stray dotfile cannot block startup.
func mergeLocalConfig(v *viper.Viper) {
	const local = ".keycore.yaml"
	if _, err := os.Stat(local); err != nil {
		return
	}
	v.SetConfigFile(local)
	_ = v.MergeInConfig()
	v.SetConfigFile("")
}

// WriteConfigFile stores c as YAML in the user or system config location and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigTo(c, path)
}

// WriteConfigTo stores c as YAML at path, creating parent directories.
func WriteConfigTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: keystore.dsn may carry credentials.
	return os.WriteFile(path, data, 0o600)
}
