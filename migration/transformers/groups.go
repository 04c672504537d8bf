// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers

import (
	"context"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/finder"
)

// GroupUsers remaps each of a group's member user references to its
// destination equivalent. A group cannot be considered faithfully
// migrated unless every member resolves, so any unresolved member
// fails the group with an error naming every missing member.
type GroupUsers struct {
	users finder.Destination
}

// NewGroupUsers returns a group membership transformer.
func NewGroupUsers(users finder.Destination) *GroupUsers {
	return &GroupUsers{users: users}
}

// Transform implements hooks.Transformer.
func (t *GroupUsers) Transform(ctx context.Context, group *content.Group) (*content.Group, error) {
	members := make([]content.Reference, 0, len(group.Members))
	var missing []string
	for _, member := range group.Members {
		result, err := resolveUser(ctx, t.users, member)
		if err != nil {
			return group, err
		}
		if !result.Found {
			missing = append(missing, member.String())
			continue
		}
		members = append(members, result.Reference)
	}
	if err := finder.NewMissingReferencesError(content.UsersType, missing); err != nil {
		return group, err
	}
	group.Members = members
	return group, nil
}

// GroupSetGroups remaps each of a group set's group references to its
// destination equivalent. As with group members, every group must
// resolve or the group set fails with an error naming every missing
// group.
type GroupSetGroups struct {
	groups finder.Destination
}

// NewGroupSetGroups returns a group set membership transformer.
func NewGroupSetGroups(groups finder.Destination) *GroupSetGroups {
	return &GroupSetGroups{groups: groups}
}

// Transform implements hooks.Transformer.
func (t *GroupSetGroups) Transform(ctx context.Context, groupSet *content.GroupSet) (*content.GroupSet, error) {
	groups := make([]content.Reference, 0, len(groupSet.Groups))
	var missing []string
	for _, ref := range groupSet.Groups {
		result, err := t.groups.FindBySourceID(ctx, ref.ID)
		if err != nil {
			return groupSet, err
		}
		if !result.Found {
			result, err = t.groups.FindBySourceLocation(ctx, ref.Location)
			if err != nil {
				return groupSet, err
			}
		}
		if !result.Found {
			missing = append(missing, ref.String())
			continue
		}
		groups = append(groups, result.Reference)
	}
	if err := finder.NewMissingReferencesError(content.GroupsType, missing); err != nil {
		return groupSet, err
	}
	groupSet.Groups = groups
	return groupSet, nil
}
