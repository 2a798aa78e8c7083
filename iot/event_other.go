// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package iot

import "fmt"

// NewEventTable reports that no event-mode transport is available on
// this platform. Use [NewCompletionTable] instead; it has no
// platform-specific dependency.
func NewEventTable() (Table, error) {
	return nil, fmt.Errorf("iot: event-mode table has no implementation for this platform")
}
