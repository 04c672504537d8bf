// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"time"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/hooks"
	"github.com/tabmigrate/tabmigrate/migration/manifest"
	"github.com/tabmigrate/tabmigrate/migration/mappings"
	"github.com/tabmigrate/tabmigrate/migration/transformers"
)

const (
	defaultBatchSize       = 100
	defaultParallelism     = 4
	defaultPublishAttempts = 3
	defaultRetryDelay      = 500 * time.Millisecond
)

// Hooks is the ordered set of extension points registered for one
// content type. Chains execute in registration order; built-in hooks
// the profile requires run before registered ones.
type Hooks[T content.Item] struct {
	Filters      []hooks.Filter[T]
	Mappings     []hooks.Mapping[T]
	Transformers []hooks.Transformer[T]
	PostPublish  []hooks.PostPublish[T]
}

// AddFilter appends a filter to the chain.
func (h *Hooks[T]) AddFilter(f hooks.Filter[T]) {
	h.Filters = append(h.Filters, f)
}

// AddMapping appends a mapping to the chain.
func (h *Hooks[T]) AddMapping(m hooks.Mapping[T]) {
	h.Mappings = append(h.Mappings, m)
}

// AddTransformer appends a transformer to the chain.
func (h *Hooks[T]) AddTransformer(t hooks.Transformer[T]) {
	h.Transformers = append(h.Transformers, t)
}

// AddPostPublish appends a post-publish hook to the chain.
func (h *Hooks[T]) AddPostPublish(p hooks.PostPublish[T]) {
	h.PostPublish = append(h.PostPublish, p)
}

// Plan is a validated, frozen migration plan: identifiers, tuning,
// profile options and the hook chains for every content type. Build
// one with a PlanBuilder.
type Plan struct {
	PlanID          string
	Profile         manifest.PipelineProfile
	BatchSize       int
	Parallelism     int
	PublishAttempts int
	RetryDelay      time.Duration

	// DestinationSiteInfo enables embedded server connection
	// rewriting when its server address is set.
	DestinationSiteInfo transformers.SiteConnectionInfo

	Users               Hooks[*content.User]
	Groups              Hooks[*content.Group]
	GroupSets           Hooks[*content.GroupSet]
	Projects            Hooks[*content.Project]
	DataSources         Hooks[*content.DataSource]
	Workbooks           Hooks[*content.Workbook]
	ExtractRefreshTasks Hooks[*content.ExtractRefreshTask]
	Subscriptions       Hooks[*content.Subscription]
	Favorites           Hooks[*content.Favorite]
}

// PlanBuilder assembles a migration plan. The zero builder is not
// valid; use NewPlanBuilder.
type PlanBuilder struct {
	plan Plan

	usernameMailDomain string
	useExistingEmail   bool
	authTypeDomains    map[string]string
}

// NewPlanBuilder returns a builder for a server-to-cloud plan.
func NewPlanBuilder() *PlanBuilder {
	return &PlanBuilder{
		plan: Plan{
			Profile:         manifest.ServerToCloud,
			BatchSize:       defaultBatchSize,
			Parallelism:     defaultParallelism,
			PublishAttempts: defaultPublishAttempts,
			RetryDelay:      defaultRetryDelay,
		},
	}
}

// WithPlanID sets the plan identifier. A fresh UUID is assigned when
// unset.
func (b *PlanBuilder) WithPlanID(id string) *PlanBuilder {
	b.plan.PlanID = id
	return b
}

// WithProfile sets the migration direction.
func (b *PlanBuilder) WithProfile(profile manifest.PipelineProfile) *PlanBuilder {
	b.plan.Profile = profile
	return b
}

// WithBatchSize sets how many items are enumerated and processed per
// batch.
func (b *PlanBuilder) WithBatchSize(size int) *PlanBuilder {
	b.plan.BatchSize = size
	return b
}

// WithParallelism bounds the number of concurrent publish calls
// within a batch.
func (b *PlanBuilder) WithParallelism(n int) *PlanBuilder {
	b.plan.Parallelism = n
	return b
}

// WithUsernameMailDomain configures the cloud username mapping:
// usernames become name@domain. useExistingEmail keeps a user's known
// email address as the username when present.
func (b *PlanBuilder) WithUsernameMailDomain(domain string, useExistingEmail bool) *PlanBuilder {
	b.usernameMailDomain = domain
	b.useExistingEmail = useExistingEmail
	return b
}

// WithAuthTypeDomains configures per-authentication-type domain
// grouping for users.
func (b *PlanBuilder) WithAuthTypeDomains(domains map[string]string) *PlanBuilder {
	b.authTypeDomains = domains
	return b
}

// WithDestinationSiteInfo enables embedded connection rewriting for
// workbooks published to the given destination site.
func (b *PlanBuilder) WithDestinationSiteInfo(info transformers.SiteConnectionInfo) *PlanBuilder {
	b.plan.DestinationSiteInfo = info
	return b
}

// Users returns the user hook chains for registration.
func (b *PlanBuilder) Users() *Hooks[*content.User] { return &b.plan.Users }

// Groups returns the group hook chains for registration.
func (b *PlanBuilder) Groups() *Hooks[*content.Group] { return &b.plan.Groups }

// GroupSets returns the group set hook chains for registration.
func (b *PlanBuilder) GroupSets() *Hooks[*content.GroupSet] { return &b.plan.GroupSets }

// Projects returns the project hook chains for registration.
func (b *PlanBuilder) Projects() *Hooks[*content.Project] { return &b.plan.Projects }

// DataSources returns the data source hook chains for registration.
func (b *PlanBuilder) DataSources() *Hooks[*content.DataSource] { return &b.plan.DataSources }

// Workbooks returns the workbook hook chains for registration.
func (b *PlanBuilder) Workbooks() *Hooks[*content.Workbook] { return &b.plan.Workbooks }

// ExtractRefreshTasks returns the task hook chains for registration.
func (b *PlanBuilder) ExtractRefreshTasks() *Hooks[*content.ExtractRefreshTask] {
	return &b.plan.ExtractRefreshTasks
}

// Subscriptions returns the subscription hook chains for
// registration.
func (b *PlanBuilder) Subscriptions() *Hooks[*content.Subscription] { return &b.plan.Subscriptions }

// Favorites returns the favorite hook chains for registration.
func (b *PlanBuilder) Favorites() *Hooks[*content.Favorite] { return &b.plan.Favorites }

// Build validates the plan, registers the built-in mappings the
// options call for, and freezes the result.
func (b *PlanBuilder) Build() (*Plan, error) {
	if b.plan.BatchSize <= 0 {
		return nil, errors.NotValidf("batch size %d", b.plan.BatchSize)
	}
	if b.plan.Parallelism <= 0 {
		return nil, errors.NotValidf("parallelism %d", b.plan.Parallelism)
	}
	if _, err := manifest.ParsePipelineProfile(string(b.plan.Profile)); err != nil {
		return nil, errors.Trace(err)
	}
	if b.plan.PlanID == "" {
		id, err := utils.NewUUID()
		if err != nil {
			return nil, errors.Trace(err)
		}
		b.plan.PlanID = id.String()
	}

	plan := b.plan
	if b.authTypeDomains != nil {
		mapping, err := mappings.NewAuthTypeDomain(b.authTypeDomains)
		if err != nil {
			return nil, errors.Trace(err)
		}
		plan.Users.Mappings = append([]hooks.Mapping[*content.User]{mapping}, plan.Users.Mappings...)
	}
	if b.usernameMailDomain != "" {
		mapping, err := mappings.NewCloudUsername(b.usernameMailDomain, b.useExistingEmail)
		if err != nil {
			return nil, errors.Trace(err)
		}
		plan.Users.Mappings = append(plan.Users.Mappings, mapping)
	}
	return &plan, nil
}
