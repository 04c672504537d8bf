// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers

import (
	"context"
	"sort"

	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/core/permission"
	"github.com/tabmigrate/tabmigrate/migration/finder"
)

// securedItem constrains a transformer to content carrying a
// permission set.
type securedItem interface {
	content.Item
	content.Securable
}

// Permissions rewrites an item's permission set for the destination:
// grantee IDs are remapped to their destination equivalents, grantees
// that cannot be resolved are dropped with a warning, duplicate
// grantee entries are merged, conflicting capability modes resolve to
// Deny, and capabilities on the exclusion table are stripped.
type Permissions[T securedItem] struct {
	users  finder.Destination
	groups finder.Destination
}

// NewPermissions returns a permissions transformer resolving grantees
// through the given finders.
func NewPermissions[T securedItem](users, groups finder.Destination) *Permissions[T] {
	return &Permissions[T]{users: users, groups: groups}
}

// Transform implements hooks.Transformer.
func (t *Permissions[T]) Transform(ctx context.Context, item T) (T, error) {
	grantees := item.GranteeCapabilities()
	if len(grantees) == 0 {
		return item, nil
	}

	merged := make(map[string]*permission.GranteeCapability)
	var order []string
	for _, grantee := range grantees {
		result, err := t.resolveGrantee(ctx, grantee)
		if err != nil {
			return item, errors.Trace(err)
		}
		if !result.Found {
			logger.Warningf("dropping permissions for unresolvable %s %q on %s",
				grantee.GranteeType, grantee.GranteeID, item.SourceReference().Location)
			continue
		}
		key := string(grantee.GranteeType) + "/" + result.Reference.ID
		existing, ok := merged[key]
		if !ok {
			mapped := permission.NewGranteeCapability(grantee.GranteeType, result.Reference.ID)
			merged[key] = &mapped
			existing = &mapped
			order = append(order, key)
		}
		existing.Merge(grantee)
	}

	transformed := make([]permission.GranteeCapability, 0, len(order))
	for _, key := range order {
		grantee := merged[key]
		if stripped := grantee.Strip(); len(stripped) > 0 {
			logger.Debugf("stripped capabilities %v for %s %q on %s",
				stripped, grantee.GranteeType, grantee.GranteeID,
				item.SourceReference().Location)
		}
		if len(grantee.Capabilities) == 0 {
			continue
		}
		transformed = append(transformed, *grantee)
	}
	sort.Slice(transformed, func(i, j int) bool {
		if transformed[i].GranteeType != transformed[j].GranteeType {
			return transformed[i].GranteeType < transformed[j].GranteeType
		}
		return transformed[i].GranteeID < transformed[j].GranteeID
	})
	item.SetGranteeCapabilities(transformed)
	return item, nil
}

func (t *Permissions[T]) resolveGrantee(ctx context.Context, grantee permission.GranteeCapability) (finder.Result, error) {
	switch grantee.GranteeType {
	case permission.GranteeUser:
		return t.users.FindBySourceID(ctx, grantee.GranteeID)
	case permission.GranteeGroup:
		return t.groups.FindBySourceID(ctx, grantee.GranteeID)
	}
	return finder.Missing, errors.NotValidf("grantee type %q", grantee.GranteeType)
}
