// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package manifest

import (
	"sync"
	"time"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// indexer is notified by an entry whenever its destination reference
// or mapped location changes, so the owning partition can keep its
// index maps current. The previous destination (if any) is passed so
// the stale index entry can be removed.
type indexer interface {
	destinationInfoUpdated(e *Entry, previous content.Reference, hadPrevious bool)
	now() time.Time
}

// Entry is the migration record for a single content item. The source
// reference is fixed at creation; the mapped location, destination
// reference, status and error list evolve as migration proceeds. An
// entry is never removed from its partition within a run.
//
// Entries are safe for concurrent use: every mutation is atomic, and
// index re-registration with the partition happens outside the entry
// lock to keep lock ordering one-way (entry, then partition).
type Entry struct {
	owner indexer

	mu             sync.Mutex
	source         content.Reference
	mappedLocation content.Location
	destination    *content.Reference
	status         EntryStatus
	hasMigrated    bool
	errs           []ErrorRecord
}

func newEntry(owner indexer, source content.Reference) *Entry {
	return &Entry{
		owner:          owner,
		source:         source,
		mappedLocation: source.Location,
		status:         Pending,
	}
}

// Source returns the source system reference for the item.
func (e *Entry) Source() content.Reference {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// MappedLocation returns the intended destination location for the
// item. Before any mapping runs it equals the source location.
func (e *Entry) MappedLocation() content.Location {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mappedLocation
}

// Destination returns the destination reference, if one has been
// found or created for the item.
func (e *Entry) Destination() (content.Reference, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destination == nil {
		return content.Reference{}, false
	}
	return *e.destination, true
}

// Status returns the entry's status for the current run.
func (e *Entry) Status() EntryStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// HasMigrated reports whether the item has ever been migrated, in
// this run or any previous run this manifest was seeded from. Once
// true it never becomes false again.
func (e *Entry) HasMigrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMigrated
}

// Errors returns the error records accumulated on the entry.
func (e *Entry) Errors() []ErrorRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]ErrorRecord, len(e.errs))
	copy(errs, e.errs)
	return errs
}

// MapToDestination sets the entry's mapped location. If a destination
// reference is cached and its location no longer matches, the
// destination is cleared so it gets re-resolved against the new
// location.
func (e *Entry) MapToDestination(location content.Location) {
	e.mu.Lock()
	previous := e.destination
	e.mappedLocation = location
	if previous != nil && !previous.Location.Equals(location) {
		e.destination = nil
	} else {
		previous = nil
	}
	e.mu.Unlock()

	if previous != nil {
		e.owner.destinationInfoUpdated(e, *previous, true)
	} else {
		e.owner.destinationInfoUpdated(e, content.Reference{}, false)
	}
}

// DestinationFound records the destination reference resolved or
// created for the item. The mapped location follows the destination's
// location.
func (e *Entry) DestinationFound(ref content.Reference) {
	e.mu.Lock()
	previous := e.destination
	e.destination = &ref
	e.mappedLocation = ref.Location
	e.mu.Unlock()

	if previous != nil {
		e.owner.destinationInfoUpdated(e, *previous, true)
	} else {
		e.owner.destinationInfoUpdated(e, content.Reference{}, false)
	}
}

// SetMigrated marks the item migrated for this run and permanently
// records that it has been migrated at least once.
func (e *Entry) SetMigrated() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = Migrated
	e.hasMigrated = true
}

// SetSkipped marks the item skipped for this run.
func (e *Entry) SetSkipped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = Skipped
}

// SetCanceled marks the item canceled for this run. No error is
// recorded.
func (e *Entry) SetCanceled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = Canceled
}

// SetFailed marks the item failed and records the causes.
func (e *Entry) SetFailed(errs ...error) {
	now := e.owner.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = Error
	for _, err := range errs {
		e.errs = append(e.errs, ErrorRecord{Time: now, Message: err.Error()})
	}
}

// refreshSource replaces the source reference with a newly enumerated
// one for the same location. Called by the partition with its own
// lock held; the entry lock alone guards the entry fields.
func (e *Entry) refreshSource(source content.Reference) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = source
}

// resetForNewRun prepares an entry imported from a previous run's
// manifest: the status returns to Pending for re-evaluation and old
// error records are dropped. HasMigrated and the destination survive.
func (e *Entry) resetForNewRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = Pending
	e.errs = nil
}

// snapshot returns a consistent copy of all entry fields.
func (e *Entry) snapshot() entrySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := entrySnapshot{
		source:         e.source,
		mappedLocation: e.mappedLocation,
		status:         e.status,
		hasMigrated:    e.hasMigrated,
		errs:           make([]ErrorRecord, len(e.errs)),
	}
	copy(snap.errs, e.errs)
	if e.destination != nil {
		dest := *e.destination
		snap.destination = &dest
	}
	return snap
}

type entrySnapshot struct {
	source         content.Reference
	mappedLocation content.Location
	destination    *content.Reference
	status         EntryStatus
	hasMigrated    bool
	errs           []ErrorRecord
}

// Equals reports deep structural equality with another entry.
func (e *Entry) Equals(other *Entry) bool {
	if other == nil {
		return false
	}
	a, b := e.snapshot(), other.snapshot()
	if !a.source.Equals(b.source) ||
		!a.mappedLocation.Equals(b.mappedLocation) ||
		a.status != b.status ||
		a.hasMigrated != b.hasMigrated ||
		len(a.errs) != len(b.errs) {
		return false
	}
	if (a.destination == nil) != (b.destination == nil) {
		return false
	}
	if a.destination != nil && !a.destination.Equals(*b.destination) {
		return false
	}
	for i := range a.errs {
		if !a.errs[i].Time.Equal(b.errs[i].Time) || a.errs[i].Message != b.errs[i].Message {
			return false
		}
	}
	return true
}
