// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package transformers provides the built-in content transformers
// applied between mapping and publishing: ownership and permission
// remapping, group membership remapping, schedule and site role
// compatibility, and embedded reference rewriting.
package transformers

import (
	"context"

	"github.com/juju/loggo"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/migration/finder"
)

var logger = loggo.GetLogger("tabmigrate.transformers")

// ownedItem constrains a transformer to content carrying an owner
// reference.
type ownedItem interface {
	content.Item
	content.Ownable
}

// Ownership replaces an item's owner reference with the owner's
// destination reference. Every migratable item must have an owner, so
// an unresolvable owner fails the item.
type Ownership[T ownedItem] struct {
	users finder.Destination
}

// NewOwnership returns an ownership transformer resolving owners
// through the given user finder.
func NewOwnership[T ownedItem](users finder.Destination) *Ownership[T] {
	return &Ownership[T]{users: users}
}

// Transform implements hooks.Transformer.
func (t *Ownership[T]) Transform(ctx context.Context, item T) (T, error) {
	owner := item.OwnedBy()
	result, err := resolveUser(ctx, t.users, owner)
	if err != nil {
		return item, err
	}
	if !result.Found {
		return item, finder.NewMissingReferencesError(
			content.UsersType, []string{owner.String()})
	}
	item.SetOwner(result.Reference)
	return item, nil
}

// resolveUser looks a user up by source ID first, falling back to the
// source location for references enumerated without IDs.
func resolveUser(ctx context.Context, users finder.Destination, ref content.Reference) (finder.Result, error) {
	if ref.ID != "" {
		result, err := users.FindBySourceID(ctx, ref.ID)
		if err != nil || result.Found {
			return result, err
		}
	}
	if !ref.Location.IsEmpty() {
		return users.FindBySourceLocation(ctx, ref.Location)
	}
	return finder.Missing, nil
}
