// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/finder"
)

// targetedItem constrains a transformer to content referencing one
// other content item.
type targetedItem interface {
	content.Item
	content.Targeting
}

// TargetReference remaps an item's single referenced content item
// (workbook, data source or view) to its destination counterpart,
// resolving by source content URL first and source ID second.
//
// Whether a missing destination is fatal depends on the reference:
// a favorite without its target or a refresh task without its extract
// cannot be published, so those are constructed required. A reference
// that is mere metadata is constructed optional; the original
// reference is kept and a warning logged once per (item, target)
// pair.
type TargetReference[T targetedItem] struct {
	finders  *finder.Registry
	required bool

	mu     sync.Mutex
	warned map[string]bool
}

// NewRequiredTarget returns a target transformer that fails the item
// when the target cannot be resolved.
func NewRequiredTarget[T targetedItem](finders *finder.Registry) *TargetReference[T] {
	return &TargetReference[T]{finders: finders, required: true, warned: make(map[string]bool)}
}

// NewOptionalTarget returns a target transformer that keeps the
// original reference and warns when the target cannot be resolved.
func NewOptionalTarget[T targetedItem](finders *finder.Registry) *TargetReference[T] {
	return &TargetReference[T]{finders: finders, warned: make(map[string]bool)}
}

// Transform implements hooks.Transformer.
func (t *TargetReference[T]) Transform(ctx context.Context, item T) (T, error) {
	target := item.GetTarget()
	targetType := item.TargetContentType()
	f, err := t.finders.For(targetType)
	if err != nil {
		return item, errors.Trace(err)
	}

	result := finder.Missing
	if target.ContentURL != "" {
		if result, err = f.FindBySourceContentURL(ctx, target.ContentURL); err != nil {
			return item, errors.Trace(err)
		}
	}
	if !result.Found && target.ID != "" {
		if result, err = f.FindBySourceID(ctx, target.ID); err != nil {
			return item, errors.Trace(err)
		}
	}

	if !result.Found {
		if t.required {
			return item, finder.NewMissingReferencesError(targetType, []string{target.String()})
		}
		t.warnOnce(item.SourceReference(), target)
		return item, nil
	}
	item.SetTarget(result.Reference)
	return item, nil
}

// warnOnce logs a missing optional target at most once per
// (item, target) pair, so repeated incremental runs do not flood the
// log.
func (t *TargetReference[T]) warnOnce(item, target content.Reference) {
	key := item.ID + "/" + target.ContentURL + "/" + target.ID
	t.mu.Lock()
	seen := t.warned[key]
	t.warned[key] = true
	t.mu.Unlock()
	if seen {
		return
	}
	logger.Warningf("keeping original reference %s on %s: no destination match",
		target, item.Location)
}
