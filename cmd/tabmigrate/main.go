// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// tabmigrate inspects migration manifests produced by the migration
// SDK: per-type progress, status totals and recorded errors.
package main

import (
	"fmt"
	"os"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
)

func main() {
	os.Exit(Main(os.Args[1:]))
}

// Main runs the command and returns the process exit code.
func Main(args []string) int {
	var loggingConfig string
	flags := gnuflag.NewFlagSet("tabmigrate", gnuflag.ContinueOnError)
	flags.StringVar(&loggingConfig, "logging-config", "<root>=WARNING",
		"loggo configuration string")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: tabmigrate [options] status <manifest-file>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(true, args); err != nil {
		return 2
	}
	if err := loggo.ConfigureLoggers(loggingConfig); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		return 2
	}

	rest := flags.Args()
	if len(rest) < 1 {
		flags.Usage()
		return 2
	}
	var err error
	switch rest[0] {
	case "status":
		if len(rest) != 2 {
			flags.Usage()
			return 2
		}
		err = showStatus(rest[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", rest[0])
		flags.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func showStatus(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Annotate(err, "opening manifest")
	}
	defer f.Close()

	m, err := manifest.Load(f, clock.WallClock)
	if err != nil {
		return errors.Annotate(err, "loading manifest")
	}

	fmt.Printf("plan:      %s\n", m.PlanID())
	fmt.Printf("migration: %s\n", m.MigrationID())
	fmt.Printf("profile:   %s\n", m.Profile())
	fmt.Println()

	for _, t := range content.AllTypes {
		partition := m.Partition(t)
		if partition.Count() == 0 {
			continue
		}
		totals := partition.GetStatusTotals()
		fmt.Printf("%-22s %4d items:", t, partition.Count())
		for _, status := range manifest.AllEntryStatuses {
			if totals[status] > 0 {
				fmt.Printf(" %d %s", totals[status], status)
			}
		}
		fmt.Println()
	}

	if errs := m.Errors(); len(errs) > 0 {
		fmt.Println()
		fmt.Printf("%d run errors:\n", len(errs))
		for _, record := range errs {
			fmt.Printf("  %s  %s\n", record.Time.Format("2006-01-02 15:04:05"), record.Message)
		}
	}
	return nil
}
