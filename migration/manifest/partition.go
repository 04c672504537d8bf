// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package manifest

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// Partition is the manifest's per-content-type collection of entries,
// indexed by every identity dimension used during migration: source
// ID, source location, source content URL, destination ID and mapped
// location. All indices point at the same entry instances.
//
// A partition supports concurrent reads interleaved with writes from
// multiple in-flight batch workers; every index mutation is atomic
// under the partition lock, and no lock is ever taken across the
// whole manifest.
type Partition struct {
	contentType content.Type
	clock       clock.Clock

	mu                 sync.RWMutex
	entries            []*Entry
	bySourceID         map[string]*Entry
	bySourceLocation   map[string]*Entry
	bySourceContentURL map[string]*Entry
	byDestinationID    map[string]*Entry
	byMappedLocation   map[string]*Entry

	// Reverse maps record which destination/mapped keys an entry is
	// currently indexed under, so stale keys can be removed when the
	// entry's destination info changes.
	indexedDestination map[*Entry]string
	indexedMapped      map[*Entry]string

	expectedTotal int
}

func newPartition(contentType content.Type, clk clock.Clock) *Partition {
	return &Partition{
		contentType:        contentType,
		clock:              clk,
		bySourceID:         make(map[string]*Entry),
		bySourceLocation:   make(map[string]*Entry),
		bySourceContentURL: make(map[string]*Entry),
		byDestinationID:    make(map[string]*Entry),
		byMappedLocation:   make(map[string]*Entry),
		indexedDestination: make(map[*Entry]string),
		indexedMapped:      make(map[*Entry]string),
	}
}

// ContentType returns the content type this partition records.
func (p *Partition) ContentType() content.Type {
	return p.contentType
}

// Count returns the number of entries in the partition.
func (p *Partition) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// ExpectedTotalCount returns the best known total number of source
// items for this content type. It is the larger of the entries created
// so far and any total reported by a paged source enumeration, so
// progress can be reported before all pages have been fetched.
func (p *Partition) ExpectedTotalCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.entries) > p.expectedTotal {
		return len(p.entries)
	}
	return p.expectedTotal
}

// Entries returns the partition's entries in creation order.
func (p *Partition) Entries() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := make([]*Entry, len(p.entries))
	copy(entries, p.entries)
	return entries
}

// CreateEntries records one entry per source reference. A reference
// whose location matches an existing entry reuses that entry,
// refreshing its source reference; anything else becomes a new
// Pending entry. The returned slice pairs with sources by index.
// The expected total only ever grows.
func (p *Partition) CreateEntries(sources []content.Reference, expectedTotal int) ([]*Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if expectedTotal > p.expectedTotal {
		p.expectedTotal = expectedTotal
	}

	entries := make([]*Entry, 0, len(sources))
	for _, source := range sources {
		if source.IsZero() {
			return nil, errors.NotValidf("source reference with no identity")
		}
		key := source.Location.Key()
		if existing, ok := p.bySourceLocation[key]; ok {
			p.reindexSource(existing, source)
			existing.refreshSource(source)
			entries = append(entries, existing)
			continue
		}
		entry := newEntry(p, source)
		p.indexNewLocked(entry, source)
		entries = append(entries, entry)
	}
	return entries, nil
}

// reindexSource updates the source identity indices for an entry
// whose source reference is being refreshed. Caller holds the lock.
func (p *Partition) reindexSource(entry *Entry, source content.Reference) {
	previous := entry.Source()
	if previous.ID != source.ID {
		if p.bySourceID[previous.ID] == entry {
			delete(p.bySourceID, previous.ID)
		}
		p.bySourceID[source.ID] = entry
	}
	if previous.ContentURL != source.ContentURL {
		if previous.ContentURL != "" && p.bySourceContentURL[previous.ContentURL] == entry {
			delete(p.bySourceContentURL, previous.ContentURL)
		}
		if source.ContentURL != "" {
			p.bySourceContentURL[source.ContentURL] = entry
		}
	}
}

// indexNewLocked adds a brand new entry to every applicable index.
// Caller holds the lock. Empty content URLs are never indexed.
func (p *Partition) indexNewLocked(entry *Entry, source content.Reference) {
	p.entries = append(p.entries, entry)
	p.bySourceID[source.ID] = entry
	p.bySourceLocation[source.Location.Key()] = entry
	if source.ContentURL != "" {
		p.bySourceContentURL[source.ContentURL] = entry
	}
	mapped := entry.MappedLocation().Key()
	p.byMappedLocation[mapped] = entry
	p.indexedMapped[entry] = mapped
	if dest, ok := entry.Destination(); ok {
		p.byDestinationID[dest.ID] = entry
		p.indexedDestination[entry] = dest.ID
	}
}

// addImported inserts an entry rebuilt from a previous run or a
// persisted manifest, carrying the given state verbatim.
func (p *Partition) addImported(snap entrySnapshot) *Entry {
	entry := newEntry(p, snap.source)
	entry.mappedLocation = snap.mappedLocation
	entry.destination = snap.destination
	entry.status = snap.status
	entry.hasMigrated = snap.hasMigrated
	entry.errs = snap.errs

	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexNewLocked(entry, snap.source)
	return entry
}

// GetStatusTotals returns the number of entries in each status. Every
// status appears in the result, zero when absent.
func (p *Partition) GetStatusTotals() map[EntryStatus]int {
	totals := make(map[EntryStatus]int, len(AllEntryStatuses))
	for _, status := range AllEntryStatuses {
		totals[status] = 0
	}
	for _, entry := range p.Entries() {
		totals[entry.Status()]++
	}
	return totals
}

// BySourceID returns the entry for a source system ID.
func (p *Partition) BySourceID(id string) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.bySourceID[id]
	return e, ok
}

// BySourceLocation returns the entry for a source location.
func (p *Partition) BySourceLocation(location content.Location) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.bySourceLocation[location.Key()]
	return e, ok
}

// BySourceContentURL returns the entry for a non-empty source content
// URL.
func (p *Partition) BySourceContentURL(url string) (*Entry, bool) {
	if url == "" {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.bySourceContentURL[url]
	return e, ok
}

// ByDestinationID returns the entry whose destination reference has
// the given ID.
func (p *Partition) ByDestinationID(id string) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.byDestinationID[id]
	return e, ok
}

// ByMappedLocation returns the entry whose mapped destination
// location matches.
func (p *Partition) ByMappedLocation(location content.Location) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.byMappedLocation[location.Key()]
	return e, ok
}

// destinationInfoUpdated implements indexer. It refreshes the
// destination-ID and mapped-location indices for an entry whose
// destination reference changed or was cleared, removing whatever
// stale keys the entry was previously indexed under.
func (p *Partition) destinationInfoUpdated(e *Entry, previous content.Reference, hadPrevious bool) {
	mapped := e.MappedLocation().Key()
	dest, hasDest := e.Destination()

	p.mu.Lock()
	defer p.mu.Unlock()

	if hadPrevious && p.byDestinationID[previous.ID] == e {
		delete(p.byDestinationID, previous.ID)
		delete(p.indexedDestination, e)
	}
	if stale, ok := p.indexedMapped[e]; ok && stale != mapped {
		if p.byMappedLocation[stale] == e {
			delete(p.byMappedLocation, stale)
		}
	}
	p.byMappedLocation[mapped] = e
	p.indexedMapped[e] = mapped

	if hasDest {
		if stale, ok := p.indexedDestination[e]; ok && stale != dest.ID {
			if p.byDestinationID[stale] == e {
				delete(p.byDestinationID, stale)
			}
		}
		p.byDestinationID[dest.ID] = e
		p.indexedDestination[e] = dest.ID
	}
}

// now implements indexer.
func (p *Partition) now() time.Time {
	return p.clock.Now().UTC()
}

// Equals reports deep structural equality with another partition,
// comparing entries in creation order.
func (p *Partition) Equals(other *Partition) bool {
	if other == nil || p.contentType != other.contentType {
		return false
	}
	a, b := p.Entries(), other.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}
