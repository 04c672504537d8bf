// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package mappings provides the built-in location mappings applied
// before transformation. Mappings compose: each sees the location
// produced by the one registered before it.
package mappings

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/tabmigrate/tabmigrate/core/content"
)

// AuthTypeDomain maps users into an authentication-type specific
// domain: every user whose AuthType appears in the table is placed
// under the configured domain segment.
type AuthTypeDomain struct {
	domains map[string]string
}

// NewAuthTypeDomain returns a mapping from the auth-type to domain
// table.
func NewAuthTypeDomain(domains map[string]string) (*AuthTypeDomain, error) {
	if len(domains) == 0 {
		return nil, errors.NotValidf("empty auth type domain table")
	}
	copied := make(map[string]string, len(domains))
	for auth, domain := range domains {
		if domain == "" {
			return nil, errors.NotValidf("empty domain for auth type %q", auth)
		}
		copied[auth] = domain
	}
	return &AuthTypeDomain{domains: copied}, nil
}

// MapLocation implements hooks.Mapping.
func (m *AuthTypeDomain) MapLocation(_ context.Context, user *content.User, location content.Location) (content.Location, error) {
	domain, ok := m.domains[user.AuthType]
	if !ok {
		return location, nil
	}
	return content.UserLocation(domain, location.Name()), nil
}

// CloudUsername rewrites usernames into the email form required by
// cloud sites. A user's existing email address is preferred when
// configured; otherwise the mail domain is appended to the username.
type CloudUsername struct {
	mailDomain       string
	useExistingEmail bool
}

// NewCloudUsername returns the cloud username mapping. mailDomain is
// required; useExistingEmail keeps a user's known email address as
// the username when one is present.
func NewCloudUsername(mailDomain string, useExistingEmail bool) (*CloudUsername, error) {
	if mailDomain == "" {
		return nil, errors.NotValidf("empty mail domain")
	}
	return &CloudUsername{
		mailDomain:       mailDomain,
		useExistingEmail: useExistingEmail,
	}, nil
}

// MapLocation implements hooks.Mapping.
func (m *CloudUsername) MapLocation(_ context.Context, user *content.User, location content.Location) (content.Location, error) {
	name := location.Name()
	if m.useExistingEmail && user.Email != "" {
		return location.Rename(user.Email), nil
	}
	if strings.Contains(name, "@") {
		return location, nil
	}
	return location.Rename(name + "@" + m.mailDomain), nil
}
