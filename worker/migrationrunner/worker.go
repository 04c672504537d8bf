// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package migrationrunner runs a migration asynchronously, publishing
// batch progress over a hub so interested parties can watch the run
// without polling the manifest.
package migrationrunner

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	"gopkg.in/tomb.v2"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
)

var logger = loggo.GetLogger("tabmigrate.worker.migrationrunner")

// ProgressTopic is the hub topic progress events are published on.
const ProgressTopic = "migration.progress"

// ProgressEvent reports the pipeline's position after a processed
// batch.
type ProgressEvent struct {
	// ContentType is the type currently being migrated.
	ContentType content.Type

	// Processed and Total count items of that type. Total may grow
	// while pages are still being fetched.
	Processed int
	Total     int

	// StatusTotals aggregates entry statuses across the whole
	// manifest at the time of the event.
	StatusTotals map[manifest.EntryStatus]int
}

// Config holds the arguments for NewWorker.
type Config struct {
	// Args configures the migrator the worker runs. The Progress
	// callback is owned by the worker and must be unset.
	Args migration.MigratorArgs

	// Hub carries progress events.
	Hub *pubsub.SimpleHub
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Hub == nil {
		return errors.NotValidf("nil Hub")
	}
	if c.Args.Progress != nil {
		return errors.NotValidf("progress callback set by caller")
	}
	return errors.Trace(c.Args.Validate())
}

// Worker runs one migration in the background. Kill cancels the run
// cooperatively; Wait returns once the run has a final status.
type Worker struct {
	tomb tomb.Tomb
	hub  *pubsub.SimpleHub

	mu     sync.Mutex
	result *migration.Result
}

// NewWorker starts a migration run.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{hub: config.Hub}
	w.tomb.Go(func() error {
		return w.run(config.Args)
	})
	return w, nil
}

func (w *Worker) run(args migration.MigratorArgs) error {
	ctx := w.tomb.Context(nil)

	args.Progress = func(t content.Type, processed, total int, totals map[manifest.EntryStatus]int) {
		w.hub.Publish(ProgressTopic, ProgressEvent{
			ContentType:  t,
			Processed:    processed,
			Total:        total,
			StatusTotals: totals,
		})
	}

	migrator, err := migration.NewMigrator(args)
	if err != nil {
		return errors.Trace(err)
	}
	result, err := migrator.Run(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	w.mu.Lock()
	w.result = result
	w.mu.Unlock()
	logger.Infof("migration finished with status %s", result.Status)
	return nil
}

// Result returns the run's result once the worker has finished.
func (w *Worker) Result() (*migration.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return nil, errors.NotYetAvailablef("migration still running")
	}
	return w.result, nil
}

// Kill is part of the worker.Worker interface. It cancels the run
// cooperatively; the run ends with Canceled status, not an error.
func (w *Worker) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.tomb.Wait()
}
