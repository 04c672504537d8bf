// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package content

import "github.com/juju/errors"

// Type names a migratable content type. The value is the name used for
// the type's partition in a persisted manifest.
type Type string

const (
	UsersType               Type = "users"
	GroupsType              Type = "groups"
	GroupSetsType           Type = "group-sets"
	ProjectsType            Type = "projects"
	DataSourcesType         Type = "data-sources"
	WorkbooksType           Type = "workbooks"
	ExtractRefreshTasksType Type = "extract-refresh-tasks"
	SubscriptionsType       Type = "subscriptions"
	FavoritesType           Type = "favorites"
)

// AllTypes lists every content type in migration dependency order:
// identity content first, then the content that references it, then
// the content that references that.
var AllTypes = []Type{
	UsersType,
	GroupsType,
	GroupSetsType,
	ProjectsType,
	DataSourcesType,
	WorkbooksType,
	ExtractRefreshTasksType,
	SubscriptionsType,
	FavoritesType,
}

// ParseType converts a partition name back to a Type.
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.NotValidf("content type %q", s)
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}
