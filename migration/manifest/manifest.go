// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package manifest implements the durable record of per-item
// migration state kept across one or more migration runs: one entry
// per content item, partitioned by content type and indexed by every
// identity dimension the pipeline resolves against.
package manifest

import (
	"sync"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// CurrentVersion is the manifest format version written by this
// package. Loading any other version is not supported.
const CurrentVersion = 1

// PipelineProfile names the migration direction a manifest belongs
// to.
type PipelineProfile string

const (
	ServerToCloud  PipelineProfile = "server-to-cloud"
	ServerToServer PipelineProfile = "server-to-server"
	CloudToCloud   PipelineProfile = "cloud-to-cloud"
)

// ParsePipelineProfile converts a persisted profile name to a
// PipelineProfile.
func ParsePipelineProfile(s string) (PipelineProfile, error) {
	switch PipelineProfile(s) {
	case ServerToCloud, ServerToServer, CloudToCloud:
		return PipelineProfile(s), nil
	}
	return "", errors.NotValidf("pipeline profile %q", s)
}

// ManifestArgs holds the arguments for New.
type ManifestArgs struct {
	// PlanID identifies the migration plan the run executes.
	PlanID string

	// MigrationID identifies this run.
	MigrationID string

	// Profile is the migration direction.
	Profile PipelineProfile

	// Previous, when set, seeds the new manifest with the previous
	// run's entries so the run proceeds incrementally. Entries are
	// deep copied with their statuses reset to Pending for
	// re-evaluation; HasMigrated and destination references survive.
	Previous *Manifest

	// Clock stamps error records. clock.WallClock when nil.
	Clock clock.Clock
}

// Manifest is the root aggregate of a migration run's state: one
// partition per content type plus the run-level (non-item-scoped)
// error list.
type Manifest struct {
	planID      string
	migrationID string
	profile     PipelineProfile
	clock       clock.Clock

	partitions map[content.Type]*Partition

	mu   sync.Mutex
	errs []ErrorRecord
}

// New returns a manifest for a fresh run, optionally seeded from a
// previous run's manifest.
func New(args ManifestArgs) *Manifest {
	clk := args.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	profile := args.Profile
	if profile == "" {
		profile = ServerToCloud
	}
	m := &Manifest{
		planID:      args.PlanID,
		migrationID: args.MigrationID,
		profile:     profile,
		clock:       clk,
		partitions:  make(map[content.Type]*Partition, len(content.AllTypes)),
	}
	for _, t := range content.AllTypes {
		m.partitions[t] = newPartition(t, clk)
	}
	if args.Previous != nil {
		for _, t := range content.AllTypes {
			for _, entry := range args.Previous.Partition(t).Entries() {
				snap := entry.snapshot()
				snap.status = Pending
				snap.errs = nil
				m.partitions[t].addImported(snap)
			}
		}
	}
	return m
}

// PlanID returns the identifier of the plan this manifest records.
func (m *Manifest) PlanID() string {
	return m.planID
}

// MigrationID returns the identifier of the run this manifest
// records.
func (m *Manifest) MigrationID() string {
	return m.migrationID
}

// Profile returns the migration direction the manifest belongs to.
func (m *Manifest) Profile() PipelineProfile {
	return m.profile
}

// Partition returns the partition for a content type. Partitions for
// every known content type exist from construction.
func (m *Manifest) Partition(t content.Type) *Partition {
	return m.partitions[t]
}

// AddError records a run-level error not scoped to any single item,
// for example an endpoint sign-in failure.
func (m *Manifest) AddError(err error) {
	record := ErrorRecord{Time: m.clock.Now().UTC(), Message: err.Error()}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, record)
}

// Errors returns the run-level error records.
func (m *Manifest) Errors() []ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := make([]ErrorRecord, len(m.errs))
	copy(errs, m.errs)
	return errs
}

// EntryStatusTotals aggregates status totals across all partitions.
// Every status is present in the result.
func (m *Manifest) EntryStatusTotals() map[EntryStatus]int {
	totals := make(map[EntryStatus]int, len(AllEntryStatuses))
	for _, status := range AllEntryStatuses {
		totals[status] = 0
	}
	for _, t := range content.AllTypes {
		for status, n := range m.partitions[t].GetStatusTotals() {
			totals[status] += n
		}
	}
	return totals
}

// Equals reports deep structural equality with another manifest:
// identifiers, profile, run-level errors and every partition's
// entries.
func (m *Manifest) Equals(other *Manifest) bool {
	if other == nil {
		return false
	}
	if m.planID != other.planID ||
		m.migrationID != other.migrationID ||
		m.profile != other.profile {
		return false
	}
	a, b := m.Errors(), other.Errors()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Time.Equal(b[i].Time) || a[i].Message != b[i].Message {
			return false
		}
	}
	for _, t := range content.AllTypes {
		if !m.partitions[t].Equals(other.partitions[t]) {
			return false
		}
	}
	return true
}
