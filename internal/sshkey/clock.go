// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import "time"

// Clock provides an abstraction over time.Now for certificate validity
// checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var defaultClock Clock = systemClock{}

// SetClock replaces the clock used by CheckAuthority. Tests may set a fake
// clock.
func SetClock(c Clock) { defaultClock = c }

// ResetClock restores the system clock.
func ResetClock() { defaultClock = systemClock{} }
