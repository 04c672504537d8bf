// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package manifest_test

import (
	"bytes"
	"strings"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
)

type SerializationSuite struct{}

var _ = gc.Suite(&SerializationSuite{})

func (s *SerializationSuite) TestRoundTrip(c *gc.C) {
	m := manifest.New(manifest.ManifestArgs{
		PlanID:      "plan-1",
		MigrationID: "run-1",
		Profile:     manifest.ServerToCloud,
		Clock:       testclock.NewClock(epoch),
	})
	m.AddError(errors.New("sign in flapped"))

	users, err := m.Partition(content.UsersType).CreateEntries([]content.Reference{
		sourceRef(c, "u-1", "", "fred"),
		sourceRef(c, "u-2", "", "mary"),
	}, 0)
	c.Assert(err, jc.ErrorIsNil)
	users[0].DestinationFound(sourceRef(c, "dest-u-1", "", "fred@example.com"))
	users[0].SetMigrated()
	users[1].SetFailed(errors.New("no licence seat"))

	workbooks, err := m.Partition(content.WorkbooksType).CreateEntries([]content.Reference{
		sourceRef(c, "w-1", "overview", "Default", "Overview"),
	}, 0)
	c.Assert(err, jc.ErrorIsNil)
	workbooks[0].MapToDestination(content.MustNewLocation("Archive", "Overview"))

	var buf bytes.Buffer
	c.Assert(manifest.Save(m, &buf), jc.ErrorIsNil)

	loaded, err := manifest.Load(&buf, testclock.NewClock(epoch))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(loaded.Equals(m), jc.IsTrue)
}

func (s *SerializationSuite) TestRoundTripPreservesStatuses(c *gc.C) {
	m := manifest.New(manifest.ManifestArgs{
		PlanID:      "plan-1",
		MigrationID: "run-1",
		Clock:       testclock.NewClock(epoch),
	})
	entries, err := m.Partition(content.GroupsType).CreateEntries([]content.Reference{
		sourceRef(c, "g-1", "", "admins"),
		sourceRef(c, "g-2", "", "analysts"),
	}, 0)
	c.Assert(err, jc.ErrorIsNil)
	entries[0].SetSkipped()
	entries[1].SetCanceled()

	var buf bytes.Buffer
	c.Assert(manifest.Save(m, &buf), jc.ErrorIsNil)
	loaded, err := manifest.Load(&buf, testclock.NewClock(epoch))
	c.Assert(err, jc.ErrorIsNil)

	p := loaded.Partition(content.GroupsType)
	e, ok := p.BySourceID("g-1")
	c.Assert(ok, jc.IsTrue)
	c.Check(e.Status(), gc.Equals, manifest.Skipped)
	e, ok = p.BySourceID("g-2")
	c.Assert(ok, jc.IsTrue)
	c.Check(e.Status(), gc.Equals, manifest.Canceled)
}

func (s *SerializationSuite) TestLoadUnsupportedVersion(c *gc.C) {
	doc := strings.NewReader("version: 99\nplan-id: p\nmigration-id: r\n")
	_, err := manifest.Load(doc, testclock.NewClock(epoch))
	c.Check(err, jc.Satisfies, errors.IsNotSupported)
	c.Check(err, gc.ErrorMatches, "manifest version 99 not supported")
}

func (s *SerializationSuite) TestLoadMissingVersion(c *gc.C) {
	doc := strings.NewReader("plan-id: p\nmigration-id: r\n")
	_, err := manifest.Load(doc, testclock.NewClock(epoch))
	c.Check(err, gc.ErrorMatches, "manifest version schema check failed: .*")
}

func (s *SerializationSuite) TestLoadDefaultsPipelineProfile(c *gc.C) {
	doc := strings.NewReader("version: 1\nplan-id: p\nmigration-id: r\n")
	loaded, err := manifest.Load(doc, testclock.NewClock(epoch))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(loaded.Profile(), gc.Equals, manifest.ServerToCloud)
}

func (s *SerializationSuite) TestLoadBadStatus(c *gc.C) {
	doc := strings.NewReader(`
version: 1
plan-id: p
migration-id: r
entries:
  users:
    - source:
        id: u-1
        location: [fred]
      mapped-location: [fred]
      status: exploded
`)
	_, err := manifest.Load(doc, testclock.NewClock(epoch))
	c.Check(err, gc.ErrorMatches, `users entry 0: entry status "exploded" not valid`)
}
