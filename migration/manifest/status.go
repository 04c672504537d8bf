// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package manifest

import (
	"time"

	"github.com/juju/errors"
)

// EntryStatus is the migration status of a single manifest entry for
// the current run.
type EntryStatus string

const (
	// Pending means the item has not yet been processed this run.
	Pending EntryStatus = "pending"

	// Migrated means the item was published to the destination.
	Migrated EntryStatus = "migrated"

	// Skipped means the item was deliberately not published, either
	// because a filter excluded it or because a previous run already
	// migrated it.
	Skipped EntryStatus = "skipped"

	// Canceled means processing stopped before the item was published
	// because the run was canceled. Cancellation is not an error.
	Canceled EntryStatus = "canceled"

	// Error means the item failed to migrate; the entry's error
	// records hold the causes.
	Error EntryStatus = "error"
)

// AllEntryStatuses lists every entry status. Status totals report all
// of these, zero-valued when absent.
var AllEntryStatuses = []EntryStatus{Pending, Migrated, Skipped, Canceled, Error}

// ParseEntryStatus converts a persisted status string to an
// EntryStatus.
func ParseEntryStatus(s string) (EntryStatus, error) {
	for _, status := range AllEntryStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", errors.NotValidf("entry status %q", s)
}

// ErrorRecord is one recorded migration error, either on an entry or
// on the manifest itself.
type ErrorRecord struct {
	// Time is when the error was recorded, in UTC.
	Time time.Time

	// Message is the rendered error.
	Message string
}
