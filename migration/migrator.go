// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"context"
	"sync"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/finder"
	"github.com/tabmigrate/tabmigrate/migration/hooks"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
	"github.com/tabmigrate/tabmigrate/migration/transformers"
)

// MigratorArgs holds the arguments for NewMigrator.
type MigratorArgs struct {
	// Plan is the validated migration plan.
	Plan *Plan

	// Source and Destination are the site endpoints.
	Source      SourceEndpoint
	Destination DestinationEndpoint

	// FileStore provides file-backed content for transformers that
	// rewrite embedded documents. Optional; without it embedded
	// connection rewriting is disabled.
	FileStore ContentFileStore

	// Previous, when set, seeds the run's manifest from a previous
	// run so the migration proceeds incrementally.
	Previous *manifest.Manifest

	// Clock drives retries and error timestamps. clock.WallClock
	// when nil.
	Clock clock.Clock

	// Progress, when set, is called after each processed batch with
	// the position within the current content type and the
	// manifest-wide entry status totals.
	Progress func(t content.Type, processed, total int, totals map[manifest.EntryStatus]int)
}

// Validate checks the required collaborators are present.
func (a MigratorArgs) Validate() error {
	if a.Plan == nil {
		return errors.NotValidf("nil Plan")
	}
	if a.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if a.Destination == nil {
		return errors.NotValidf("nil Destination")
	}
	return nil
}

// Result is the final outcome of a migration run: a definitive status
// and the manifest accounting for every item.
type Result struct {
	Status   Status
	Manifest *manifest.Manifest
}

// Migrator runs one migration to completion, cancellation or fatal
// error. A migrator is single-use.
type Migrator struct {
	args  MigratorArgs
	clock clock.Clock

	mu     sync.Mutex
	status Status
}

// NewMigrator returns a migrator for the given plan and endpoints.
func NewMigrator(args MigratorArgs) (*Migrator, error) {
	if err := args.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	clk := args.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &Migrator{
		args:   args,
		clock:  clk,
		status: NotStarted,
	}, nil
}

// Status returns the run's current lifecycle state.
func (m *Migrator) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Migrator) transition(target Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.status.CanTransitionTo(target) {
		return errors.Errorf("cannot transition migration from %q to %q", m.status, target)
	}
	m.status = target
	return nil
}

// Run executes the migration. The returned result always carries a
// manifest with a definitive status and a full accounting of per-item
// successes, skips and failures; partial completion is observable and
// resumable through a subsequent run seeded with the manifest.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	if err := m.transition(Running); err != nil {
		return nil, errors.Trace(err)
	}

	migrationID, err := utils.NewUUID()
	if err != nil {
		return nil, errors.Trace(err)
	}
	mf := manifest.New(manifest.ManifestArgs{
		PlanID:      m.args.Plan.PlanID,
		MigrationID: migrationID.String(),
		Profile:     m.args.Plan.Profile,
		Previous:    m.args.Previous,
		Clock:       m.clock,
	})
	logger.Infof("starting migration %s for plan %s", migrationID, m.args.Plan.PlanID)

	if err := m.args.Source.SignIn(ctx); err != nil {
		return m.fatal(mf, errors.Annotate(err, "source endpoint sign in"))
	}
	if err := m.args.Destination.SignIn(ctx); err != nil {
		return m.fatal(mf, errors.Annotate(err, "destination endpoint sign in"))
	}

	e := &engine{
		plan:        m.args.Plan,
		manifest:    mf,
		source:      m.args.Source,
		destination: m.args.Destination,
		clock:       m.clock,
		progress:    m.args.Progress,
	}
	finders := m.buildFinders(mf)
	runs, err := m.contentRuns(e, finders)
	if err != nil {
		return m.fatal(mf, errors.Trace(err))
	}

	for _, run := range runs {
		err := run(ctx)
		if errors.Cause(err) == errRunCanceled {
			logger.Infof("migration %s canceled", migrationID)
			m.mu.Lock()
			m.status = Canceled
			m.mu.Unlock()
			return &Result{Status: Canceled, Manifest: mf}, nil
		}
		if err != nil {
			return m.fatal(mf, errors.Trace(err))
		}
	}

	m.mu.Lock()
	m.status = Completed
	m.mu.Unlock()
	logger.Infof("migration %s completed", migrationID)
	return &Result{Status: Completed, Manifest: mf}, nil
}

func (m *Migrator) fatal(mf *manifest.Manifest, err error) (*Result, error) {
	mf.AddError(err)
	logger.Errorf("migration failed: %v", err)
	m.mu.Lock()
	m.status = FatalError
	m.mu.Unlock()
	return &Result{Status: FatalError, Manifest: mf}, nil
}

// buildFinders composes the destination finder for every content
// type: the manifest partition first (content migrated this run or a
// seeded previous run), then for identity and container content a
// cached bulk enumeration of what already exists in the destination.
func (m *Migrator) buildFinders(mf *manifest.Manifest) *finder.Registry {
	registry := finder.NewRegistry()
	cached := map[content.Type]finder.BulkLister{
		content.UsersType:       m.args.Destination.ListUserReferences,
		content.GroupsType:      m.args.Destination.ListGroupReferences,
		content.ProjectsType:    m.args.Destination.ListProjectReferences,
		content.DataSourcesType: m.args.Destination.ListDataSourceReferences,
		content.WorkbooksType:   m.args.Destination.ListWorkbookReferences,
	}
	for _, t := range content.AllTypes {
		manifestFinder := finder.NewManifestFinder(mf.Partition(t))
		if list, ok := cached[t]; ok {
			registry.Register(t, finder.NewComposite(manifestFinder, finder.NewCachedFinder(list)))
		} else {
			registry.Register(t, manifestFinder)
		}
	}
	return registry
}

// contentRuns assembles the per-content-type pipeline runs in
// dependency order, with the profile's built-in transformers placed
// ahead of any registered by the plan.
func (m *Migrator) contentRuns(e *engine, finders *finder.Registry) ([]func(context.Context) error, error) {
	plan := m.args.Plan
	toCloud := plan.Profile == manifest.ServerToCloud

	users, err := finders.For(content.UsersType)
	if err != nil {
		return nil, errors.Trace(err)
	}
	groups, err := finders.For(content.GroupsType)
	if err != nil {
		return nil, errors.Trace(err)
	}
	dataSources, err := finders.For(content.DataSourcesType)
	if err != nil {
		return nil, errors.Trace(err)
	}

	userHooks := plan.Users
	if toCloud {
		userHooks.Transformers = prepend[hooks.Transformer[*content.User]](userHooks.Transformers, transformers.NewCloudSiteRole())
	}

	groupHooks := plan.Groups
	groupHooks.Transformers = prepend[hooks.Transformer[*content.Group]](groupHooks.Transformers, transformers.NewGroupUsers(users))

	groupSetHooks := plan.GroupSets
	groupSetHooks.Transformers = prepend[hooks.Transformer[*content.GroupSet]](groupSetHooks.Transformers, transformers.NewGroupSetGroups(groups))

	projectHooks := plan.Projects
	projectHooks.Transformers = prepend[hooks.Transformer[*content.Project]](projectHooks.Transformers,
		transformers.NewOwnership[*content.Project](users),
		transformers.NewPermissions[*content.Project](users, groups))

	dataSourceHooks := plan.DataSources
	dataSourceHooks.Transformers = prepend[hooks.Transformer[*content.DataSource]](dataSourceHooks.Transformers,
		transformers.NewOwnership[*content.DataSource](users),
		transformers.NewPermissions[*content.DataSource](users, groups))

	workbookHooks := plan.Workbooks
	workbookHooks.Transformers = prepend[hooks.Transformer[*content.Workbook]](workbookHooks.Transformers,
		transformers.NewOwnership[*content.Workbook](users),
		transformers.NewPermissions[*content.Workbook](users, groups))
	if m.args.FileStore != nil && plan.DestinationSiteInfo.ServerAddress != "" {
		connections, err := transformers.NewServerConnectionURL(
			m.args.FileStore, dataSources, plan.DestinationSiteInfo)
		if err != nil {
			return nil, errors.Trace(err)
		}
		workbookHooks.Transformers = append(workbookHooks.Transformers, connections)
	}

	taskHooks := plan.ExtractRefreshTasks
	taskHooks.Transformers = prepend[hooks.Transformer[*content.ExtractRefreshTask]](taskHooks.Transformers,
		transformers.NewRequiredTarget[*content.ExtractRefreshTask](finders))
	if toCloud {
		taskHooks.Transformers = append(taskHooks.Transformers,
			transformers.NewCloudScheduleCompatibility[*content.ExtractRefreshTask]())
	}

	subscriptionHooks := plan.Subscriptions
	subscriptionHooks.Transformers = prepend[hooks.Transformer[*content.Subscription]](subscriptionHooks.Transformers,
		transformers.NewOwnership[*content.Subscription](users),
		transformers.NewRequiredTarget[*content.Subscription](finders))
	if toCloud {
		subscriptionHooks.Transformers = append(subscriptionHooks.Transformers,
			transformers.NewCloudScheduleCompatibility[*content.Subscription]())
	}

	favoriteHooks := plan.Favorites
	favoriteHooks.Transformers = prepend[hooks.Transformer[*content.Favorite]](favoriteHooks.Transformers,
		transformers.NewRequiredTarget[*content.Favorite](finders))

	dest := m.args.Destination
	return []func(context.Context) error{
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.UsersType, userHooks,
				m.args.Source.ListUsers, dest.PublishUser)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.GroupsType, groupHooks,
				m.args.Source.ListGroups, dest.PublishGroup)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.GroupSetsType, groupSetHooks,
				m.args.Source.ListGroupSets, dest.PublishGroupSet)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.ProjectsType, projectHooks,
				m.args.Source.ListProjects, dest.PublishProject)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.DataSourcesType, dataSourceHooks,
				m.args.Source.ListDataSources, dest.PublishDataSource)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.WorkbooksType, workbookHooks,
				m.args.Source.ListWorkbooks, dest.PublishWorkbook)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.ExtractRefreshTasksType, taskHooks,
				m.args.Source.ListExtractRefreshTasks, dest.PublishExtractRefreshTask)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.SubscriptionsType, subscriptionHooks,
				m.args.Source.ListSubscriptions, dest.PublishSubscription)
		},
		func(ctx context.Context) error {
			return runContentType(ctx, e, content.FavoritesType, favoriteHooks,
				m.args.Source.ListFavorites, dest.PublishFavorite)
		},
	}, nil
}

// prepend returns the transformer chain with the built-ins placed
// ahead of the registered hooks, leaving the plan's own slice
// untouched.
func prepend[T any](chain []T, builtins ...T) []T {
	combined := make([]T, 0, len(builtins)+len(chain))
	combined = append(combined, builtins...)
	return append(combined, chain...)
}
