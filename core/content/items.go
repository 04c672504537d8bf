// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package content

import (
	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/permission"
	"github.com/tabmigrate/tabmigrate/core/schedule"
)

// Ownable is implemented by content items that carry an owner
// reference requiring remapping to a destination user.
type Ownable interface {
	OwnedBy() Reference
	SetOwner(Reference)
}

// Securable is implemented by content items that carry a permission
// set requiring grantee remapping.
type Securable interface {
	GranteeCapabilities() []permission.GranteeCapability
	SetGranteeCapabilities([]permission.GranteeCapability)
}

// Item is implemented by every publishable content item.
type Item interface {
	SourceReference() Reference
}

// Scheduled is implemented by content items carrying a recurrence
// schedule requiring destination compatibility checks.
type Scheduled interface {
	GetSchedule() *schedule.Schedule
	SetSchedule(*schedule.Schedule)
}

// Targeting is implemented by content items referencing one other
// content item that must be remapped to its destination counterpart.
type Targeting interface {
	TargetContentType() Type
	GetTarget() Reference
	SetTarget(Reference)
}

// User is a site user. SiteRole holds the role name as reported by the
// source system; AuthType groups users for authentication-specific
// mapping.
type User struct {
	Reference
	FullName string
	Email    string
	SiteRole string
	AuthType string
	Domain   string
}

// UserArgs holds the arguments for NewUser.
type UserArgs struct {
	Reference Reference
	FullName  string
	Email     string
	SiteRole  string
	AuthType  string
	Domain    string
}

// NewUser returns a user built from args.
func NewUser(args UserArgs) *User {
	return &User{
		Reference: args.Reference,
		FullName:  args.FullName,
		Email:     args.Email,
		SiteRole:  args.SiteRole,
		AuthType:  args.AuthType,
		Domain:    args.Domain,
	}
}

// SourceReference implements Item.
func (u *User) SourceReference() Reference { return u.Reference }

// Name returns the username, without any domain qualification.
func (u *User) Name() string { return u.Location.Name() }

// Group is a site group and its member users.
type Group struct {
	Reference
	Domain  string
	Members []Reference
}

// SourceReference implements Item.
func (g *Group) SourceReference() Reference { return g.Reference }

// GroupSet is a named collection of groups.
type GroupSet struct {
	Reference
	Groups []Reference
}

// SourceReference implements Item.
func (g *GroupSet) SourceReference() Reference { return g.Reference }

// Project is a project, possibly nested: its location path encodes the
// project hierarchy.
type Project struct {
	Reference
	Description string
	Owner       Reference
	Permissions []permission.GranteeCapability
}

// GranteeCapabilities implements Securable.
func (p *Project) GranteeCapabilities() []permission.GranteeCapability { return p.Permissions }

// SetGranteeCapabilities implements Securable.
func (p *Project) SetGranteeCapabilities(g []permission.GranteeCapability) { p.Permissions = g }

// SourceReference implements Item.
func (p *Project) SourceReference() Reference { return p.Reference }

// OwnedBy implements Ownable.
func (p *Project) OwnedBy() Reference { return p.Owner }

// SetOwner implements Ownable.
func (p *Project) SetOwner(r Reference) { p.Owner = r }

// DataSource is a published data source.
type DataSource struct {
	Reference
	Owner       Reference
	Project     Reference
	Certified   bool
	Permissions []permission.GranteeCapability
}

// GranteeCapabilities implements Securable.
func (d *DataSource) GranteeCapabilities() []permission.GranteeCapability { return d.Permissions }

// SetGranteeCapabilities implements Securable.
func (d *DataSource) SetGranteeCapabilities(g []permission.GranteeCapability) { d.Permissions = g }

// SourceReference implements Item.
func (d *DataSource) SourceReference() Reference { return d.Reference }

// OwnedBy implements Ownable.
func (d *DataSource) OwnedBy() Reference { return d.Owner }

// SetOwner implements Ownable.
func (d *DataSource) SetOwner(r Reference) { d.Owner = r }

// Connection is one of a workbook's embedded data connections. Type
// holds the connection class attribute from the workbook document.
type Connection struct {
	ID            string
	Type          string
	ServerAddress string
	ServerPort    string
	ContentURL    string
}

// Workbook is a published workbook together with its embedded
// connections.
type Workbook struct {
	Reference
	Owner       Reference
	Project     Reference
	ShowTabs    bool
	Connections []Connection
	Permissions []permission.GranteeCapability
}

// GranteeCapabilities implements Securable.
func (w *Workbook) GranteeCapabilities() []permission.GranteeCapability { return w.Permissions }

// SetGranteeCapabilities implements Securable.
func (w *Workbook) SetGranteeCapabilities(g []permission.GranteeCapability) { w.Permissions = g }

// SourceReference implements Item.
func (w *Workbook) SourceReference() Reference { return w.Reference }

// OwnedBy implements Ownable.
func (w *Workbook) OwnedBy() Reference { return w.Owner }

// SetOwner implements Ownable.
func (w *Workbook) SetOwner(r Reference) { w.Owner = r }

// ExtractRefreshTask schedules extract refreshes for a workbook or
// data source.
type ExtractRefreshTask struct {
	Reference
	TargetType Type
	Target     Reference
	Schedule   *schedule.Schedule
}

// SourceReference implements Item.
func (t *ExtractRefreshTask) SourceReference() Reference { return t.Reference }

// TargetContentType implements Targeting.
func (t *ExtractRefreshTask) TargetContentType() Type { return t.TargetType }

// GetTarget implements Targeting.
func (t *ExtractRefreshTask) GetTarget() Reference { return t.Target }

// SetTarget implements Targeting.
func (t *ExtractRefreshTask) SetTarget(r Reference) { t.Target = r }

// GetSchedule implements Scheduled.
func (t *ExtractRefreshTask) GetSchedule() *schedule.Schedule { return t.Schedule }

// SetSchedule implements Scheduled.
func (t *ExtractRefreshTask) SetSchedule(s *schedule.Schedule) { t.Schedule = s }

// Validate checks the task target type.
func (t *ExtractRefreshTask) Validate() error {
	if t.TargetType != WorkbooksType && t.TargetType != DataSourcesType {
		return errors.NotValidf("extract refresh target type %q", t.TargetType)
	}
	return nil
}

// Subscription delivers a view or workbook to a user on a schedule.
type Subscription struct {
	Reference
	Owner      Reference
	TargetType Type
	Target     Reference
	Schedule   *schedule.Schedule
}

// SourceReference implements Item.
func (s *Subscription) SourceReference() Reference { return s.Reference }

// TargetContentType implements Targeting.
func (s *Subscription) TargetContentType() Type { return s.TargetType }

// GetTarget implements Targeting.
func (s *Subscription) GetTarget() Reference { return s.Target }

// SetTarget implements Targeting.
func (s *Subscription) SetTarget(r Reference) { s.Target = r }

// GetSchedule implements Scheduled.
func (s *Subscription) GetSchedule() *schedule.Schedule { return s.Schedule }

// SetSchedule implements Scheduled.
func (s *Subscription) SetSchedule(sch *schedule.Schedule) { s.Schedule = sch }

// OwnedBy implements Ownable.
func (s *Subscription) OwnedBy() Reference { return s.Owner }

// SetOwner implements Ownable.
func (s *Subscription) SetOwner(r Reference) { s.Owner = r }

// Favorite marks a content item as a favorite of a user.
type Favorite struct {
	Reference
	User       Reference
	TargetType Type
	Target     Reference
	Label      string
}

// SourceReference implements Item.
func (f *Favorite) SourceReference() Reference { return f.Reference }

// TargetContentType implements Targeting.
func (f *Favorite) TargetContentType() Type { return f.TargetType }

// GetTarget implements Targeting.
func (f *Favorite) GetTarget() Reference { return f.Target }

// SetTarget implements Targeting.
func (f *Favorite) SetTarget(r Reference) { f.Target = r }
