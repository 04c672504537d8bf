// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooks defines the extension points a migration plan is
// assembled from (filters, mappings, transformers and post-publish
// hooks) and the runners that execute registered chains of them.
//
// Hook execution reports through a tagged Outcome rather than bare
// errors so the pipeline can tell cancellation apart from failure
// without inspecting error types at every call site.
package hooks

import (
	"context"

	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// Kind tags an Outcome.
type Kind int

const (
	// OK means the chain ran to completion and Item holds the result.
	OK Kind = iota

	// Skip means a filter excluded the item from this run.
	Skip

	// Cancel means the run was canceled while processing the item.
	// Cancellation is not an error and is never recorded as one.
	Cancel

	// Fail means a hook failed; Errors holds every underlying cause.
	Fail
)

// Outcome is the tagged result of running a hook chain over an item.
type Outcome[T any] struct {
	Kind   Kind
	Item   T
	Errors []error
}

// Ok returns a successful outcome carrying the (possibly replaced)
// item.
func Ok[T any](item T) Outcome[T] {
	return Outcome[T]{Kind: OK, Item: item}
}

// Skipped returns a filtered-out outcome.
func Skipped[T any]() Outcome[T] {
	return Outcome[T]{Kind: Skip}
}

// Canceled returns a canceled outcome.
func Canceled[T any]() Outcome[T] {
	return Outcome[T]{Kind: Cancel}
}

// Failed returns a failed outcome carrying the causes.
func Failed[T any](errs ...error) Outcome[T] {
	return Outcome[T]{Kind: Fail, Errors: errs}
}

// IsCancellation reports whether an error signals cooperative
// cancellation rather than a genuine failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// outcomeForError maps a hook error to a failed or canceled outcome.
func outcomeForError[T any](err error) Outcome[T] {
	if IsCancellation(err) {
		return Canceled[T]()
	}
	return Failed[T](err)
}

// Filter decides whether an item takes part in the run at all.
type Filter[T content.Item] interface {
	// Matches reports whether the item should be migrated.
	Matches(ctx context.Context, item T) (bool, error)
}

// Mapping computes an item's intended destination location. Mappings
// in a chain compose: each receives the location produced by the
// previous mapping.
type Mapping[T content.Item] interface {
	// MapLocation returns the mapped destination location for the
	// item. Returning the input location unchanged means "no
	// applicable change".
	MapLocation(ctx context.Context, item T, location content.Location) (content.Location, error)
}

// Transformer mutates an item's properties and references for
// destination compatibility. Transformers in a chain compose: each
// receives the previous transformer's output.
type Transformer[T content.Item] interface {
	// Transform returns the transformed item.
	Transform(ctx context.Context, item T) (T, error)
}

// PostPublish runs after an item has been successfully published.
type PostPublish[T content.Item] interface {
	// Published is called with the item as published and its new
	// destination reference.
	Published(ctx context.Context, item T, destination content.Reference) error
}

// RunFilters executes a filter chain. The first filter to exclude the
// item short-circuits the rest.
func RunFilters[T content.Item](ctx context.Context, filters []Filter[T], item T) Outcome[T] {
	for _, f := range filters {
		if err := ctx.Err(); err != nil {
			return Canceled[T]()
		}
		matches, err := f.Matches(ctx, item)
		if err != nil {
			return outcomeForError[T](err)
		}
		if !matches {
			return Skipped[T]()
		}
	}
	return Ok(item)
}

// RunMappings executes a mapping chain, feeding each mapping the
// previous mapping's output, and returns the final location.
func RunMappings[T content.Item](ctx context.Context, mappings []Mapping[T], item T, location content.Location) (content.Location, Outcome[T]) {
	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			return location, Canceled[T]()
		}
		mapped, err := m.MapLocation(ctx, item, location)
		if err != nil {
			return location, outcomeForError[T](err)
		}
		if !mapped.IsEmpty() {
			location = mapped
		}
	}
	return location, Ok(item)
}

// RunTransformers executes a transformer chain, feeding each
// transformer the previous transformer's output.
func RunTransformers[T content.Item](ctx context.Context, transformers []Transformer[T], item T) Outcome[T] {
	for _, t := range transformers {
		if err := ctx.Err(); err != nil {
			return Canceled[T]()
		}
		transformed, err := t.Transform(ctx, item)
		if err != nil {
			return outcomeForError[T](err)
		}
		item = transformed
	}
	return Ok(item)
}

// RunPostPublish executes the post-publish chain for an item.
func RunPostPublish[T content.Item](ctx context.Context, hooks []PostPublish[T], item T, destination content.Reference) Outcome[T] {
	for _, h := range hooks {
		if err := ctx.Err(); err != nil {
			return Canceled[T]()
		}
		if err := h.Published(ctx, item, destination); err != nil {
			return outcomeForError[T](err)
		}
	}
	return Ok(item)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc[T content.Item] func(ctx context.Context, item T) (bool, error)

// Matches implements Filter.
func (f FilterFunc[T]) Matches(ctx context.Context, item T) (bool, error) {
	return f(ctx, item)
}

// MappingFunc adapts a function to the Mapping interface.
type MappingFunc[T content.Item] func(ctx context.Context, item T, location content.Location) (content.Location, error)

// MapLocation implements Mapping.
func (f MappingFunc[T]) MapLocation(ctx context.Context, item T, location content.Location) (content.Location, error) {
	return f(ctx, item, location)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc[T content.Item] func(ctx context.Context, item T) (T, error)

// Transform implements Transformer.
func (f TransformerFunc[T]) Transform(ctx context.Context, item T) (T, error) {
	return f(ctx, item)
}

// PostPublishFunc adapts a function to the PostPublish interface.
type PostPublishFunc[T content.Item] func(ctx context.Context, item T, destination content.Reference) error

// Published implements PostPublish.
func (f PostPublishFunc[T]) Published(ctx context.Context, item T, destination content.Reference) error {
	return f(ctx, item, destination)
}
