// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooks_test

import (
	"context"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/hooks"
)

type HooksSuite struct{}

var _ = gc.Suite(&HooksSuite{})

func testUser(c *gc.C, name string) *content.User {
	ref, err := content.NewReference("u-"+name, content.UserLocation("", name), "")
	c.Assert(err, jc.ErrorIsNil)
	return content.NewUser(content.UserArgs{Reference: ref})
}

func (s *HooksSuite) TestRunFiltersAllMatch(c *gc.C) {
	var calls int
	match := hooks.FilterFunc[*content.User](func(_ context.Context, _ *content.User) (bool, error) {
		calls++
		return true, nil
	})
	outcome := hooks.RunFilters(context.Background(),
		[]hooks.Filter[*content.User]{match, match}, testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.OK)
	c.Check(calls, gc.Equals, 2)
}

func (s *HooksSuite) TestRunFiltersShortCircuits(c *gc.C) {
	exclude := hooks.FilterFunc[*content.User](func(_ context.Context, _ *content.User) (bool, error) {
		return false, nil
	})
	var called bool
	after := hooks.FilterFunc[*content.User](func(_ context.Context, _ *content.User) (bool, error) {
		called = true
		return true, nil
	})
	outcome := hooks.RunFilters(context.Background(),
		[]hooks.Filter[*content.User]{exclude, after}, testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.Skip)
	c.Check(called, jc.IsFalse)
}

func (s *HooksSuite) TestRunFiltersError(c *gc.C) {
	broken := hooks.FilterFunc[*content.User](func(_ context.Context, _ *content.User) (bool, error) {
		return false, errors.New("boom")
	})
	outcome := hooks.RunFilters(context.Background(),
		[]hooks.Filter[*content.User]{broken}, testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.Fail)
	c.Assert(outcome.Errors, gc.HasLen, 1)
	c.Check(outcome.Errors[0], gc.ErrorMatches, "boom")
}

func (s *HooksSuite) TestRunFiltersCanceledContext(c *gc.C) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var called bool
	match := hooks.FilterFunc[*content.User](func(_ context.Context, _ *content.User) (bool, error) {
		called = true
		return true, nil
	})
	outcome := hooks.RunFilters(ctx, []hooks.Filter[*content.User]{match}, testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.Cancel)
	c.Check(called, jc.IsFalse)
}

func (s *HooksSuite) TestCancellationErrorBecomesCancelOutcome(c *gc.C) {
	canceling := hooks.FilterFunc[*content.User](func(_ context.Context, _ *content.User) (bool, error) {
		return false, errors.Trace(context.Canceled)
	})
	outcome := hooks.RunFilters(context.Background(),
		[]hooks.Filter[*content.User]{canceling}, testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.Cancel)
	c.Check(outcome.Errors, gc.HasLen, 0)
}

func (s *HooksSuite) TestRunMappingsCompose(c *gc.C) {
	appendSegment := func(segment string) hooks.Mapping[*content.User] {
		return hooks.MappingFunc[*content.User](func(_ context.Context, _ *content.User, loc content.Location) (content.Location, error) {
			return loc.Append(segment), nil
		})
	}
	location, outcome := hooks.RunMappings(context.Background(),
		[]hooks.Mapping[*content.User]{appendSegment("a"), appendSegment("b")},
		testUser(c, "fred"), content.MustNewLocation("root"))
	c.Check(outcome.Kind, gc.Equals, hooks.OK)
	c.Check(location.String(), gc.Equals, "root/a/b")
}

func (s *HooksSuite) TestRunMappingsEmptyResultKeepsLocation(c *gc.C) {
	noop := hooks.MappingFunc[*content.User](func(_ context.Context, _ *content.User, _ content.Location) (content.Location, error) {
		return content.Location{}, nil
	})
	location, outcome := hooks.RunMappings(context.Background(),
		[]hooks.Mapping[*content.User]{noop},
		testUser(c, "fred"), content.MustNewLocation("root"))
	c.Check(outcome.Kind, gc.Equals, hooks.OK)
	c.Check(location.String(), gc.Equals, "root")
}

func (s *HooksSuite) TestRunTransformersCompose(c *gc.C) {
	setFullName := func(name string) hooks.Transformer[*content.User] {
		return hooks.TransformerFunc[*content.User](func(_ context.Context, u *content.User) (*content.User, error) {
			u.FullName = name
			return u, nil
		})
	}
	outcome := hooks.RunTransformers(context.Background(),
		[]hooks.Transformer[*content.User]{setFullName("first"), setFullName("second")},
		testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.OK)
	c.Check(outcome.Item.FullName, gc.Equals, "second")
}

func (s *HooksSuite) TestRunTransformersFailure(c *gc.C) {
	broken := hooks.TransformerFunc[*content.User](func(_ context.Context, u *content.User) (*content.User, error) {
		return nil, errors.New("bad reference")
	})
	outcome := hooks.RunTransformers(context.Background(),
		[]hooks.Transformer[*content.User]{broken}, testUser(c, "fred"))
	c.Check(outcome.Kind, gc.Equals, hooks.Fail)
	c.Assert(outcome.Errors, gc.HasLen, 1)
	c.Check(outcome.Errors[0], gc.ErrorMatches, "bad reference")
}

func (s *HooksSuite) TestRunPostPublish(c *gc.C) {
	var got content.Reference
	record := hooks.PostPublishFunc[*content.User](func(_ context.Context, _ *content.User, dest content.Reference) error {
		got = dest
		return nil
	})
	dest, err := content.NewReference("dest-1", content.UserLocation("", "fred@example.com"), "")
	c.Assert(err, jc.ErrorIsNil)
	outcome := hooks.RunPostPublish(context.Background(),
		[]hooks.PostPublish[*content.User]{record}, testUser(c, "fred"), dest)
	c.Check(outcome.Kind, gc.Equals, hooks.OK)
	c.Check(got.Equals(dest), jc.IsTrue)
}

func (s *HooksSuite) TestIsCancellation(c *gc.C) {
	c.Check(hooks.IsCancellation(context.Canceled), jc.IsTrue)
	c.Check(hooks.IsCancellation(context.DeadlineExceeded), jc.IsTrue)
	c.Check(hooks.IsCancellation(errors.Annotate(context.Canceled, "while waiting")), jc.IsTrue)
	c.Check(hooks.IsCancellation(errors.New("boom")), jc.IsFalse)
	c.Check(hooks.IsCancellation(nil), jc.IsFalse)
}
