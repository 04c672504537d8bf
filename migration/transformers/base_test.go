// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers_test

import (
	"context"

	"github.com/juju/loggo"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/finder"
)

// fakeFinder is an in-memory finder.Destination for tests.
type fakeFinder struct {
	byID       map[string]content.Reference
	byLocation map[string]content.Reference
	byURL      map[string]content.Reference
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{
		byID:       make(map[string]content.Reference),
		byLocation: make(map[string]content.Reference),
		byURL:      make(map[string]content.Reference),
	}
}

// addByID registers a destination reference resolvable by source ID.
func (f *fakeFinder) addByID(sourceID string, dest content.Reference) {
	f.byID[sourceID] = dest
}

// addByLocation registers a destination reference resolvable by source
// location.
func (f *fakeFinder) addByLocation(location content.Location, dest content.Reference) {
	f.byLocation[location.Key()] = dest
}

// addByURL registers a destination reference resolvable by source
// content URL.
func (f *fakeFinder) addByURL(url string, dest content.Reference) {
	f.byURL[url] = dest
}

func lookup(m map[string]content.Reference, key string) (finder.Result, error) {
	if ref, ok := m[key]; ok {
		return finder.FoundResult(ref), nil
	}
	return finder.Missing, nil
}

func (f *fakeFinder) FindBySourceID(_ context.Context, id string) (finder.Result, error) {
	return lookup(f.byID, id)
}

func (f *fakeFinder) FindBySourceLocation(_ context.Context, location content.Location) (finder.Result, error) {
	return lookup(f.byLocation, location.Key())
}

func (f *fakeFinder) FindBySourceContentURL(_ context.Context, url string) (finder.Result, error) {
	return lookup(f.byURL, url)
}

func (f *fakeFinder) FindByMappedLocation(_ context.Context, location content.Location) (finder.Result, error) {
	return lookup(f.byLocation, location.Key())
}

// baseSuite captures log output so tests can assert on warnings.
type baseSuite struct {
	testing.IsolationSuite
	writer loggo.TestWriter
}

func (s *baseSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.writer.Clear()
	c.Assert(loggo.RegisterWriter("capture", &s.writer), jc.ErrorIsNil)
	s.AddCleanup(func(*gc.C) {
		loggo.RemoveWriter("capture")
	})
}

func (s *baseSuite) warnings() []string {
	var messages []string
	for _, entry := range s.writer.Log() {
		if entry.Level >= loggo.WARNING {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}

func ref(c *gc.C, id, url string, segments ...string) content.Reference {
	r, err := content.NewReference(id, content.MustNewLocation(segments...), url)
	c.Assert(err, jc.ErrorIsNil)
	return r
}
