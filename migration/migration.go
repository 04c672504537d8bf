// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package migration orchestrates content migration between sites: it
// builds the run manifest, executes the content-type pipeline in
// dependency order, and reports a definitive final status with a full
// per-item accounting.
package migration

import (
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("tabmigrate.migration")

// Status is the lifecycle state of a migration run.
type Status string

const (
	// NotStarted is the state before Run is called.
	NotStarted Status = "not-started"

	// Running means the pipeline is processing content types.
	Running Status = "running"

	// Completed means every content type was processed. Individual
	// item failures are recorded on manifest entries and do not stop
	// a run completing.
	Completed Status = "completed"

	// Canceled means cooperative cancellation stopped the run.
	// Cancellation records no errors.
	Canceled Status = "canceled"

	// FatalError means a run-level failure stopped the run, for
	// example an endpoint that could not be reached.
	FatalError Status = "fatal-error"
)

var validTransitions = map[Status][]Status{
	NotStarted: {Running},
	Running:    {Completed, Canceled, FatalError},
}

// CanTransitionTo reports whether the target status is a valid next
// state.
func (s Status) CanTransitionTo(target Status) bool {
	for _, valid := range validTransitions[s] {
		if valid == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the run has finished.
func (s Status) IsTerminal() bool {
	switch s {
	case Completed, Canceled, FatalError:
		return true
	}
	return false
}

// ParseStatus converts a status name to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case NotStarted, Running, Completed, Canceled, FatalError:
		return Status(s), nil
	}
	return "", errors.NotValidf("migration status %q", s)
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
