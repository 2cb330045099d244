// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keytype holds the static registry of SSH key algorithms: wire
// names, short display names, ECDSA curves and the certificate flag for each
// supported key type. The table is read-only and safe to share between
// goroutines without synchronization.
package keytype
