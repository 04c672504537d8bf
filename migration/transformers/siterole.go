// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transformers

import (
	"context"

	"github.com/tabmigrate/tabmigrate/core/content"
	"github.com/tabmigrate/tabmigrate/core/siterole"
)

// CloudSiteRole rewrites server-only site roles to their cloud
// equivalents, matching the source role name case-insensitively.
// Roles that are valid on cloud, unrecognised roles and blank roles
// pass through unchanged.
type CloudSiteRole struct{}

// NewCloudSiteRole returns the cloud site role transformer.
func NewCloudSiteRole() *CloudSiteRole {
	return &CloudSiteRole{}
}

// Transform implements hooks.Transformer.
func (t *CloudSiteRole) Transform(_ context.Context, user *content.User) (*content.User, error) {
	if user.SiteRole == "" {
		return user, nil
	}
	mapped, ok := siterole.ToCloud(user.SiteRole)
	if !ok {
		return user, nil
	}
	user.SiteRole = string(mapped)
	return user, nil
}
