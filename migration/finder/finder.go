// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package finder resolves source content references to their
// destination counterparts. Lookup misses are reported as explicit
// not-found results, never as errors: the caller decides whether a
// missing reference is fatal.
package finder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
)

// Result is the outcome of a destination lookup.
type Result struct {
	// Found reports whether a destination reference was resolved.
	Found bool

	// Reference is the destination reference when Found.
	Reference content.Reference
}

// Missing is the not-found Result.
var Missing = Result{}

// FoundResult wraps a resolved reference.
func FoundResult(ref content.Reference) Result {
	return Result{Found: true, Reference: ref}
}

// Destination resolves source identities to destination references
// for one content type.
type Destination interface {
	// FindBySourceID resolves by the source system ID.
	FindBySourceID(ctx context.Context, id string) (Result, error)

	// FindBySourceLocation resolves by the source location.
	FindBySourceLocation(ctx context.Context, location content.Location) (Result, error)

	// FindBySourceContentURL resolves by the source content URL.
	FindBySourceContentURL(ctx context.Context, url string) (Result, error)

	// FindByMappedLocation resolves by the mapped destination
	// location.
	FindByMappedLocation(ctx context.Context, location content.Location) (Result, error)
}

// ManifestFinder resolves against a manifest partition: it finds
// content migrated earlier in the same run (or a previous run the
// manifest was seeded from).
type ManifestFinder struct {
	partition *manifest.Partition
}

// NewManifestFinder returns a finder over the given partition.
func NewManifestFinder(partition *manifest.Partition) *ManifestFinder {
	return &ManifestFinder{partition: partition}
}

func entryDestination(entry *manifest.Entry, ok bool) Result {
	if !ok {
		return Missing
	}
	dest, found := entry.Destination()
	if !found {
		return Missing
	}
	return FoundResult(dest)
}

// FindBySourceID implements Destination.
func (f *ManifestFinder) FindBySourceID(_ context.Context, id string) (Result, error) {
	entry, ok := f.partition.BySourceID(id)
	return entryDestination(entry, ok), nil
}

// FindBySourceLocation implements Destination.
func (f *ManifestFinder) FindBySourceLocation(_ context.Context, location content.Location) (Result, error) {
	entry, ok := f.partition.BySourceLocation(location)
	return entryDestination(entry, ok), nil
}

// FindBySourceContentURL implements Destination.
func (f *ManifestFinder) FindBySourceContentURL(_ context.Context, url string) (Result, error) {
	entry, ok := f.partition.BySourceContentURL(url)
	return entryDestination(entry, ok), nil
}

// FindByMappedLocation implements Destination.
func (f *ManifestFinder) FindByMappedLocation(_ context.Context, location content.Location) (Result, error) {
	entry, ok := f.partition.ByMappedLocation(location)
	return entryDestination(entry, ok), nil
}

// BulkLister enumerates every reference of one content type present
// in the destination system.
type BulkLister func(ctx context.Context) ([]content.Reference, error)

// CachedFinder resolves against destination content that was not
// created by this migration, for example pre-existing projects. The
// destination is listed in bulk exactly once and cached, avoiding an
// endpoint round trip per item.
type CachedFinder struct {
	list BulkLister

	mu         sync.Mutex
	populated  bool
	byLocation map[string]content.Reference
	byURL      map[string]content.Reference
	byID       map[string]content.Reference
}

// NewCachedFinder returns a finder populated lazily from list.
func NewCachedFinder(list BulkLister) *CachedFinder {
	return &CachedFinder{list: list}
}

func (f *CachedFinder) populate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.populated {
		return nil
	}
	refs, err := f.list(ctx)
	if err != nil {
		return errors.Annotate(err, "listing destination content")
	}
	f.byLocation = make(map[string]content.Reference, len(refs))
	f.byURL = make(map[string]content.Reference)
	f.byID = make(map[string]content.Reference, len(refs))
	for _, ref := range refs {
		f.byLocation[ref.Location.Key()] = ref
		f.byID[ref.ID] = ref
		if ref.ContentURL != "" {
			f.byURL[ref.ContentURL] = ref
		}
	}
	f.populated = true
	return nil
}

// FindBySourceID implements Destination. A cached finder has no
// knowledge of source IDs, so this is always a miss.
func (f *CachedFinder) FindBySourceID(_ context.Context, _ string) (Result, error) {
	return Missing, nil
}

// FindBySourceLocation implements Destination. The source location is
// matched against destination locations; callers should prefer
// FindByMappedLocation once mapping has run.
func (f *CachedFinder) FindBySourceLocation(ctx context.Context, location content.Location) (Result, error) {
	return f.FindByMappedLocation(ctx, location)
}

// FindBySourceContentURL implements Destination.
func (f *CachedFinder) FindBySourceContentURL(ctx context.Context, url string) (Result, error) {
	if url == "" {
		return Missing, nil
	}
	if err := f.populate(ctx); err != nil {
		return Missing, errors.Trace(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ref, ok := f.byURL[url]; ok {
		return FoundResult(ref), nil
	}
	return Missing, nil
}

// FindByMappedLocation implements Destination.
func (f *CachedFinder) FindByMappedLocation(ctx context.Context, location content.Location) (Result, error) {
	if err := f.populate(ctx); err != nil {
		return Missing, errors.Trace(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ref, ok := f.byLocation[location.Key()]; ok {
		return FoundResult(ref), nil
	}
	return Missing, nil
}

// Composite tries each finder in order, returning the first hit.
type Composite struct {
	finders []Destination
}

// NewComposite returns a finder that consults finders in order.
// Typical composition is manifest first, cached destination second.
func NewComposite(finders ...Destination) *Composite {
	return &Composite{finders: finders}
}

// FindBySourceID implements Destination.
func (c *Composite) FindBySourceID(ctx context.Context, id string) (Result, error) {
	for _, f := range c.finders {
		result, err := f.FindBySourceID(ctx, id)
		if err != nil {
			return Missing, errors.Trace(err)
		}
		if result.Found {
			return result, nil
		}
	}
	return Missing, nil
}

// FindBySourceLocation implements Destination.
func (c *Composite) FindBySourceLocation(ctx context.Context, location content.Location) (Result, error) {
	for _, f := range c.finders {
		result, err := f.FindBySourceLocation(ctx, location)
		if err != nil {
			return Missing, errors.Trace(err)
		}
		if result.Found {
			return result, nil
		}
	}
	return Missing, nil
}

// FindBySourceContentURL implements Destination.
func (c *Composite) FindBySourceContentURL(ctx context.Context, url string) (Result, error) {
	for _, f := range c.finders {
		result, err := f.FindBySourceContentURL(ctx, url)
		if err != nil {
			return Missing, errors.Trace(err)
		}
		if result.Found {
			return result, nil
		}
	}
	return Missing, nil
}

// FindByMappedLocation implements Destination.
func (c *Composite) FindByMappedLocation(ctx context.Context, location content.Location) (Result, error) {
	for _, f := range c.finders {
		result, err := f.FindByMappedLocation(ctx, location)
		if err != nil {
			return Missing, errors.Trace(err)
		}
		if result.Found {
			return result, nil
		}
	}
	return Missing, nil
}

// Registry holds the destination finder for each content type.
type Registry struct {
	mu     sync.Mutex
	byType map[content.Type]Destination
}

// NewRegistry returns an empty finder registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[content.Type]Destination)}
}

// Register sets the finder for a content type, replacing any previous
// registration.
func (r *Registry) Register(t content.Type, f Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = f
}

// For returns the finder registered for a content type.
func (r *Registry) For(t content.Type) (Destination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byType[t]
	if !ok {
		return nil, errors.NotFoundf("destination finder for %q", t)
	}
	return f, nil
}

// MissingReferencesError aggregates every unresolved reference found
// while transforming one item, so a single failure names them all.
type MissingReferencesError struct {
	// ContentType is the type of the unresolved references.
	ContentType content.Type

	// Missing describes each unresolved reference.
	Missing []string
}

// Error implements error.
func (e *MissingReferencesError) Error() string {
	return fmt.Sprintf("no destination %s found for %s",
		e.ContentType, strings.Join(e.Missing, ", "))
}

// NewMissingReferencesError returns an aggregate missing-reference
// error, or nil if nothing is missing.
func NewMissingReferencesError(t content.Type, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return &MissingReferencesError{ContentType: t, Missing: missing}
}
