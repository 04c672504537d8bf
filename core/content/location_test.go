// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package content_test

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tabmigrate/tabmigrate/core/content"
)

type LocationSuite struct{}

var _ = gc.Suite(&LocationSuite{})

func (s *LocationSuite) TestNewLocation(c *gc.C) {
	loc, err := content.NewLocation("Projects", "Finance", "Revenue")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(loc.Len(), gc.Equals, 3)
	c.Check(loc.Name(), gc.Equals, "Revenue")
	c.Check(loc.String(), gc.Equals, "Projects/Finance/Revenue")
}

func (s *LocationSuite) TestEmptySegmentNotValid(c *gc.C) {
	_, err := content.NewLocation("Projects", "")
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
}

func (s *LocationSuite) TestEquality(c *gc.C) {
	a := content.MustNewLocation("a", "b")
	b := content.MustNewLocation("a", "b")
	other := content.MustNewLocation("a", "c")
	c.Check(a.Equals(b), jc.IsTrue)
	c.Check(a.Equals(other), jc.IsFalse)
	c.Check(a.Key(), gc.Equals, b.Key())
}

func (s *LocationSuite) TestImmutability(c *gc.C) {
	base := content.MustNewLocation("a", "b")
	extended := base.Append("c")
	renamed := base.Rename("z")
	c.Check(base.String(), gc.Equals, "a/b")
	c.Check(extended.String(), gc.Equals, "a/b/c")
	c.Check(renamed.String(), gc.Equals, "a/z")
	c.Check(base.Parent().String(), gc.Equals, "a")
}

func (s *LocationSuite) TestSegmentsCopied(c *gc.C) {
	loc := content.MustNewLocation("a", "b")
	segments := loc.Segments()
	segments[0] = "mutated"
	c.Check(loc.String(), gc.Equals, "a/b")
}

func (s *LocationSuite) TestUserLocation(c *gc.C) {
	c.Check(content.UserLocation("ads", "fred").String(), gc.Equals, "ads/fred")
	c.Check(content.UserLocation("", "fred").String(), gc.Equals, "fred")
}

func (s *LocationSuite) TestEmpty(c *gc.C) {
	var loc content.Location
	c.Check(loc.IsEmpty(), jc.IsTrue)
	c.Check(loc.Name(), gc.Equals, "")
	c.Check(content.MustNewLocation("x").IsEmpty(), jc.IsFalse)
}
