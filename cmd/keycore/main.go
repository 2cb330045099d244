// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Command keycore reads, writes, certifies and fingerprints SSH keys.
//
// Usage:
//
//	keycore [command] [flags]
//
// See keycore --help for the list of commands.
package main

import (
	"os"

	"github.com/toeirei/keycore/ui/cli"
)

func main() {
	// Execute has already reported the failure.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
