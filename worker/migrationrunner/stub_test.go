// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migrationrunner_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration"
)

// stubSource serves a fixed user list. signedIn is closed once SignIn
// has been called, so tests can synchronise with the run; when
// blockLists is set every List call parks until the context is
// canceled.
type stubSource struct {
	users      []*content.User
	signedIn   chan struct{}
	signInOnce sync.Once
	blockLists bool
}

func newStubSource(users ...*content.User) *stubSource {
	return &stubSource{
		users:    users,
		signedIn: make(chan struct{}),
	}
}

func (s *stubSource) SignIn(context.Context) error {
	s.signInOnce.Do(func() { close(s.signedIn) })
	return nil
}

func (s *stubSource) list(ctx context.Context, n int) (int, error) {
	if s.blockLists {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return n, nil
}

func (s *stubSource) ListUsers(ctx context.Context, req migration.PageRequest) ([]*content.User, int, error) {
	if _, err := s.list(ctx, len(s.users)); err != nil {
		return nil, 0, err
	}
	if req.Number > 1 {
		return nil, len(s.users), nil
	}
	return s.users, len(s.users), nil
}

func (s *stubSource) ListGroups(ctx context.Context, _ migration.PageRequest) ([]*content.Group, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListGroupSets(ctx context.Context, _ migration.PageRequest) ([]*content.GroupSet, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListProjects(ctx context.Context, _ migration.PageRequest) ([]*content.Project, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListDataSources(ctx context.Context, _ migration.PageRequest) ([]*content.DataSource, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListWorkbooks(ctx context.Context, _ migration.PageRequest) ([]*content.Workbook, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListExtractRefreshTasks(ctx context.Context, _ migration.PageRequest) ([]*content.ExtractRefreshTask, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListSubscriptions(ctx context.Context, _ migration.PageRequest) ([]*content.Subscription, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

func (s *stubSource) ListFavorites(ctx context.Context, _ migration.PageRequest) ([]*content.Favorite, int, error) {
	_, err := s.list(ctx, 0)
	return nil, 0, err
}

// stubDestination accepts everything published to it.
type stubDestination struct {
	mu     sync.Mutex
	nextID int
	users  int
}

func (d *stubDestination) SignIn(context.Context) error { return nil }

func (d *stubDestination) accept(location content.Location, url string) (content.Reference, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return content.NewReference(fmt.Sprintf("dest-%d", d.nextID), location, url)
}

func (d *stubDestination) publishedUsers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users
}

func (d *stubDestination) PublishUser(_ context.Context, user *content.User, location content.Location) (content.Reference, error) {
	d.mu.Lock()
	d.users++
	d.mu.Unlock()
	return d.accept(location, user.ContentURL)
}

func (d *stubDestination) PublishGroup(_ context.Context, group *content.Group, location content.Location) (content.Reference, error) {
	return d.accept(location, group.ContentURL)
}

func (d *stubDestination) PublishGroupSet(_ context.Context, groupSet *content.GroupSet, location content.Location) (content.Reference, error) {
	return d.accept(location, groupSet.ContentURL)
}

func (d *stubDestination) PublishProject(_ context.Context, project *content.Project, location content.Location) (content.Reference, error) {
	return d.accept(location, project.ContentURL)
}

func (d *stubDestination) PublishDataSource(_ context.Context, dataSource *content.DataSource, location content.Location) (content.Reference, error) {
	return d.accept(location, dataSource.ContentURL)
}

func (d *stubDestination) PublishWorkbook(_ context.Context, workbook *content.Workbook, location content.Location) (content.Reference, error) {
	return d.accept(location, workbook.ContentURL)
}

func (d *stubDestination) PublishExtractRefreshTask(_ context.Context, task *content.ExtractRefreshTask, location content.Location) (content.Reference, error) {
	return d.accept(location, task.ContentURL)
}

func (d *stubDestination) PublishSubscription(_ context.Context, subscription *content.Subscription, location content.Location) (content.Reference, error) {
	return d.accept(location, subscription.ContentURL)
}

func (d *stubDestination) PublishFavorite(_ context.Context, favorite *content.Favorite, location content.Location) (content.Reference, error) {
	return d.accept(location, favorite.ContentURL)
}

func (d *stubDestination) ListUserReferences(context.Context) ([]content.Reference, error) {
	return nil, nil
}

func (d *stubDestination) ListGroupReferences(context.Context) ([]content.Reference, error) {
	return nil, nil
}

func (d *stubDestination) ListProjectReferences(context.Context) ([]content.Reference, error) {
	return nil, nil
}

func (d *stubDestination) ListDataSourceReferences(context.Context) ([]content.Reference, error) {
	return nil, nil
}

func (d *stubDestination) ListWorkbookReferences(context.Context) ([]content.Reference, error) {
	return nil, nil
}

func (d *stubDestination) Delete(context.Context, content.Type, content.Reference) error {
	return nil
}
