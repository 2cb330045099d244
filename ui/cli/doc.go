// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the keycore command line using Cobra. Commands stay
// thin: parsing, encoding and storage live in the internal packages.
package cli
