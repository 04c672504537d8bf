// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package manifest

import (
	"io"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v2"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// The serialized manifest is a versioned YAML document. Version
// checking happens before any other interpretation: a document with a
// version this loader does not support fails outright rather than
// being partially interpreted.

type serializedManifest struct {
	Version         int                          `yaml:"version"`
	PlanID          string                       `yaml:"plan-id"`
	MigrationID     string                       `yaml:"migration-id"`
	PipelineProfile string                       `yaml:"pipeline-profile"`
	Errors          []serializedError            `yaml:"errors,omitempty"`
	Entries         map[string][]serializedEntry `yaml:"entries,omitempty"`
}

type serializedError struct {
	Time    time.Time `yaml:"time"`
	Message string    `yaml:"message"`
}

type serializedReference struct {
	ID         string   `yaml:"id"`
	Location   []string `yaml:"location"`
	ContentURL string   `yaml:"content-url,omitempty"`
}

type serializedEntry struct {
	Source         serializedReference  `yaml:"source"`
	MappedLocation []string             `yaml:"mapped-location"`
	Destination    *serializedReference `yaml:"destination,omitempty"`
	Status         string               `yaml:"status"`
	HasMigrated    bool                 `yaml:"has-migrated"`
	Errors         []serializedError    `yaml:"errors,omitempty"`
}

func exportReference(ref content.Reference) serializedReference {
	return serializedReference{
		ID:         ref.ID,
		Location:   ref.Location.Segments(),
		ContentURL: ref.ContentURL,
	}
}

func exportErrors(errs []ErrorRecord) []serializedError {
	out := make([]serializedError, len(errs))
	for i, e := range errs {
		out[i] = serializedError{Time: e.Time.UTC(), Message: e.Message}
	}
	return out
}

// Save writes the manifest as a versioned YAML document.
func Save(m *Manifest, w io.Writer) error {
	doc := serializedManifest{
		Version:         CurrentVersion,
		PlanID:          m.PlanID(),
		MigrationID:     m.MigrationID(),
		PipelineProfile: string(m.Profile()),
		Errors:          exportErrors(m.Errors()),
		Entries:         make(map[string][]serializedEntry),
	}
	for _, t := range content.AllTypes {
		partition := m.Partition(t)
		entries := partition.Entries()
		if len(entries) == 0 {
			continue
		}
		records := make([]serializedEntry, 0, len(entries))
		for _, entry := range entries {
			snap := entry.snapshot()
			record := serializedEntry{
				Source:         exportReference(snap.source),
				MappedLocation: snap.mappedLocation.Segments(),
				Status:         string(snap.status),
				HasMigrated:    snap.hasMigrated,
				Errors:         exportErrors(snap.errs),
			}
			if snap.destination != nil {
				dest := exportReference(*snap.destination)
				record.Destination = &dest
			}
			records = append(records, record)
		}
		doc.Entries[string(t)] = records
	}
	bytes, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Annotate(err, "marshalling manifest")
	}
	if _, err := w.Write(bytes); err != nil {
		return errors.Annotate(err, "writing manifest")
	}
	return nil
}

// Load reads a versioned manifest document. A document whose version
// this loader does not support fails with a not-supported error. A
// document omitting the pipeline profile loads as server-to-cloud for
// compatibility with manifests written before profiles existed.
func Load(r io.Reader, clk clock.Clock) (*Manifest, error) {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "reading manifest")
	}
	var source map[string]interface{}
	if err := yaml.Unmarshal(bytes, &source); err != nil {
		return nil, errors.Annotate(err, "parsing manifest")
	}
	version, err := getVersion(source)
	if err != nil {
		return nil, errors.Annotate(err, "manifest version schema check failed")
	}
	importFunc, ok := manifestDeserializationFuncs[version]
	if !ok {
		return nil, errors.NotSupportedf("manifest version %d", version)
	}
	return importFunc(source, clk)
}

func getVersion(source map[string]interface{}) (int, error) {
	checker := schema.FieldMap(schema.Fields{
		"version": schema.Int(),
	}, schema.Defaults{})
	coerced, err := checker.Coerce(source, nil)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int(coerced.(map[string]interface{})["version"].(int64)), nil
}

type manifestDeserializationFunc func(map[string]interface{}, clock.Clock) (*Manifest, error)

var manifestDeserializationFuncs = map[int]manifestDeserializationFunc{
	1: importManifestV1,
}

func importManifestV1(source map[string]interface{}, clk clock.Clock) (*Manifest, error) {
	fields := schema.Fields{
		"version":          schema.Int(),
		"plan-id":          schema.String(),
		"migration-id":     schema.String(),
		"pipeline-profile": schema.String(),
		"errors":           schema.List(schema.StringMap(schema.Any())),
		"entries":          schema.StringMap(schema.List(schema.StringMap(schema.Any()))),
	}
	defaults := schema.Defaults{
		"pipeline-profile": string(ServerToCloud),
		"errors":           schema.Omit,
		"entries":          schema.Omit,
	}
	checker := schema.FieldMap(fields, defaults)
	coerced, err := checker.Coerce(source, nil)
	if err != nil {
		return nil, errors.Annotate(err, "manifest v1 schema check failed")
	}
	valid := coerced.(map[string]interface{})

	profile, err := ParsePipelineProfile(valid["pipeline-profile"].(string))
	if err != nil {
		return nil, errors.Trace(err)
	}
	m := New(ManifestArgs{
		PlanID:      valid["plan-id"].(string),
		MigrationID: valid["migration-id"].(string),
		Profile:     profile,
		Clock:       clk,
	})

	if rawErrors, ok := valid["errors"]; ok {
		records, err := importErrorsV1(rawErrors.([]interface{}))
		if err != nil {
			return nil, errors.Trace(err)
		}
		m.mu.Lock()
		m.errs = records
		m.mu.Unlock()
	}

	if rawEntries, ok := valid["entries"]; ok {
		for name, rawList := range rawEntries.(map[string]interface{}) {
			contentType, err := content.ParseType(name)
			if err != nil {
				return nil, errors.Trace(err)
			}
			partition := m.Partition(contentType)
			for i, raw := range rawList.([]interface{}) {
				snap, err := importEntryV1(raw.(map[string]interface{}))
				if err != nil {
					return nil, errors.Annotatef(err, "%s entry %d", name, i)
				}
				partition.addImported(snap)
			}
		}
	}
	return m, nil
}

func importErrorsV1(rawList []interface{}) ([]ErrorRecord, error) {
	fields := schema.Fields{
		"time":    schema.Time(),
		"message": schema.String(),
	}
	checker := schema.FieldMap(fields, schema.Defaults{})
	records := make([]ErrorRecord, 0, len(rawList))
	for i, raw := range rawList {
		coerced, err := checker.Coerce(raw, nil)
		if err != nil {
			return nil, errors.Annotatef(err, "error record %d schema check failed", i)
		}
		valid := coerced.(map[string]interface{})
		records = append(records, ErrorRecord{
			Time:    valid["time"].(time.Time).UTC(),
			Message: valid["message"].(string),
		})
	}
	return records, nil
}

func importReferenceV1(source map[string]interface{}) (content.Reference, error) {
	fields := schema.Fields{
		"id":          schema.String(),
		"location":    schema.List(schema.String()),
		"content-url": schema.String(),
	}
	defaults := schema.Defaults{
		"content-url": "",
	}
	checker := schema.FieldMap(fields, defaults)
	coerced, err := checker.Coerce(source, nil)
	if err != nil {
		return content.Reference{}, errors.Annotate(err, "reference schema check failed")
	}
	valid := coerced.(map[string]interface{})
	location, err := importLocationV1(valid["location"].([]interface{}))
	if err != nil {
		return content.Reference{}, errors.Trace(err)
	}
	return content.NewReference(
		valid["id"].(string),
		location,
		valid["content-url"].(string),
	)
}

func importLocationV1(rawSegments []interface{}) (content.Location, error) {
	segments := make([]string, len(rawSegments))
	for i, raw := range rawSegments {
		segments[i] = raw.(string)
	}
	return content.NewLocation(segments...)
}

func importEntryV1(source map[string]interface{}) (entrySnapshot, error) {
	fields := schema.Fields{
		"source":          schema.StringMap(schema.Any()),
		"mapped-location": schema.List(schema.String()),
		"destination":     schema.StringMap(schema.Any()),
		"status":          schema.String(),
		"has-migrated":    schema.Bool(),
		"errors":          schema.List(schema.StringMap(schema.Any())),
	}
	defaults := schema.Defaults{
		"destination":  schema.Omit,
		"has-migrated": false,
		"errors":       schema.Omit,
	}
	checker := schema.FieldMap(fields, defaults)
	coerced, err := checker.Coerce(source, nil)
	if err != nil {
		return entrySnapshot{}, errors.Annotate(err, "entry schema check failed")
	}
	valid := coerced.(map[string]interface{})

	sourceRef, err := importReferenceV1(valid["source"].(map[string]interface{}))
	if err != nil {
		return entrySnapshot{}, errors.Trace(err)
	}
	mapped, err := importLocationV1(valid["mapped-location"].([]interface{}))
	if err != nil {
		return entrySnapshot{}, errors.Trace(err)
	}
	status, err := ParseEntryStatus(valid["status"].(string))
	if err != nil {
		return entrySnapshot{}, errors.Trace(err)
	}
	snap := entrySnapshot{
		source:         sourceRef,
		mappedLocation: mapped,
		status:         status,
		hasMigrated:    valid["has-migrated"].(bool),
	}
	if rawDest, ok := valid["destination"]; ok {
		dest, err := importReferenceV1(rawDest.(map[string]interface{}))
		if err != nil {
			return entrySnapshot{}, errors.Trace(err)
		}
		snap.destination = &dest
	}
	if rawErrors, ok := valid["errors"]; ok {
		records, err := importErrorsV1(rawErrors.([]interface{}))
		if err != nil {
			return entrySnapshot{}, errors.Trace(err)
		}
		snap.errs = records
	}
	return snap, nil
}
