// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
	"golang.org/x/sync/errgroup"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/hooks"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
)

// errRunCanceled is the sentinel carried out of batch workers when
// cooperative cancellation is observed. It is never recorded in the
// manifest.
var errRunCanceled = errors.New("migration run canceled")

// engine carries the state shared by every content-type run within
// one migration.
type engine struct {
	plan        *Plan
	manifest    *manifest.Manifest
	source      SourceEndpoint
	destination DestinationEndpoint
	clock       clock.Clock
	progress    func(t content.Type, processed, total int, totals map[manifest.EntryStatus]int)
}

// runContentType migrates every item of one content type: enumerate
// page by page, record manifest entries, then filter, map, transform
// and publish each item with bounded parallelism. Item failures are
// recorded on their entries and do not stop the run; enumeration
// failures and cancellation do.
func runContentType[T content.Item](
	ctx context.Context,
	e *engine,
	contentType content.Type,
	hks Hooks[T],
	list func(context.Context, PageRequest) ([]T, int, error),
	publish func(context.Context, T, content.Location) (content.Reference, error),
) error {
	partition := e.manifest.Partition(contentType)
	page := 1
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return errRunCanceled
		}
		items, total, err := list(ctx, PageRequest{Number: page, Size: e.plan.BatchSize})
		if err != nil {
			if hooks.IsCancellation(err) {
				return errRunCanceled
			}
			return errors.Annotatef(err, "enumerating %s", contentType)
		}
		if len(items) == 0 {
			break
		}

		refs := make([]content.Reference, len(items))
		for i, item := range items {
			refs[i] = item.SourceReference()
		}
		entries, err := partition.CreateEntries(refs, total)
		if err != nil {
			return errors.Annotatef(err, "recording %s entries", contentType)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(e.plan.Parallelism)
		for i := range items {
			item, entry := items[i], entries[i]
			group.Go(func() error {
				return migrateItem(groupCtx, e, hks, item, entry, publish)
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}

		processed += len(items)
		if e.progress != nil {
			e.progress(contentType, processed, partition.ExpectedTotalCount(),
				e.manifest.EntryStatusTotals())
		}
		if processed >= total || len(items) < e.plan.BatchSize {
			break
		}
		page++
	}
	logger.Debugf("%s: %d items processed", contentType, processed)
	return nil
}

// migrateItem runs one item through the hook chains and publishes it.
// Only cancellation is returned as an error; anything item-scoped is
// recorded on the entry.
func migrateItem[T content.Item](
	ctx context.Context,
	e *engine,
	hks Hooks[T],
	item T,
	entry *manifest.Entry,
	publish func(context.Context, T, content.Location) (content.Reference, error),
) error {
	// An entry migrated by a previous run is not re-published.
	if entry.HasMigrated() {
		entry.SetSkipped()
		return nil
	}

	outcome := hooks.RunFilters(ctx, hks.Filters, item)
	if done, err := recordOutcome(entry, outcome); done {
		return err
	}

	location, outcome := hooks.RunMappings(ctx, hks.Mappings, item, entry.MappedLocation())
	if done, err := recordOutcome(entry, outcome); done {
		return err
	}
	entry.MapToDestination(location)

	outcome = hooks.RunTransformers(ctx, hks.Transformers, item)
	if done, err := recordOutcome(entry, outcome); done {
		return err
	}
	item = outcome.Item

	destination, err := publishWithRetry(ctx, e, item, entry.MappedLocation(), publish)
	if err != nil {
		if hooks.IsCancellation(err) || errors.Cause(err) == errRunCanceled {
			entry.SetCanceled()
			return errRunCanceled
		}
		entry.SetFailed(err)
		return nil
	}
	entry.DestinationFound(destination)
	entry.SetMigrated()

	outcome = hooks.RunPostPublish(ctx, hks.PostPublish, item, destination)
	if outcome.Kind == hooks.Cancel {
		return errRunCanceled
	}
	if outcome.Kind == hooks.Fail {
		entry.SetFailed(outcome.Errors...)
	}
	return nil
}

// recordOutcome applies a hook chain outcome to the entry. done
// reports that processing of the item must stop; the error is
// non-nil only for cancellation.
func recordOutcome[T content.Item](entry *manifest.Entry, outcome hooks.Outcome[T]) (bool, error) {
	switch outcome.Kind {
	case hooks.OK:
		return false, nil
	case hooks.Skip:
		entry.SetSkipped()
		return true, nil
	case hooks.Cancel:
		entry.SetCanceled()
		return true, errRunCanceled
	default:
		entry.SetFailed(outcome.Errors...)
		return true, nil
	}
}

// publishWithRetry publishes an item, retrying transient failures.
// Cancellation is never retried.
func publishWithRetry[T content.Item](
	ctx context.Context,
	e *engine,
	item T,
	location content.Location,
	publish func(context.Context, T, content.Location) (content.Reference, error),
) (content.Reference, error) {
	var destination content.Reference
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			destination, err = publish(ctx, item, location)
			return err
		},
		IsFatalError: func(err error) bool {
			return hooks.IsCancellation(err)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("publish attempt %d for %s failed: %v",
				attempt, item.SourceReference().Location, err)
		},
		Attempts: e.plan.PublishAttempts,
		Delay:    e.plan.RetryDelay,
		Clock:    e.clock,
		Stop:     ctx.Done(),
	})
	if err == nil {
		return destination, nil
	}
	if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
		err = retry.LastError(err)
	}
	return content.Reference{}, errors.Trace(err)
}
