// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package permission models the permission sets attached to content
// items: which users and groups (grantees) are allowed or denied which
// capabilities.
package permission

import (
	"sort"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// Mode is the effect of a capability grant.
type Mode string

const (
	Allow Mode = "Allow"
	Deny  Mode = "Deny"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Allow, Deny:
		return Mode(s), nil
	}
	return "", errors.NotValidf("capability mode %q", s)
}

// GranteeType distinguishes user grantees from group grantees.
type GranteeType string

const (
	GranteeUser  GranteeType = "user"
	GranteeGroup GranteeType = "group"
)

// Capability names a permission capability, for example Read or
// ExportData.
type Capability string

// ProjectLeader is special-cased during migration: deny and inherited
// forms cannot be written to the destination and are stripped.
const (
	ProjectLeader          Capability = "ProjectLeader"
	InheritedProjectLeader Capability = "InheritedProjectLeader"
)

// obsoleteCapabilities lists capability names no longer accepted by
// current destinations. Grants naming them are dropped on transform.
var obsoleteCapabilities = set.NewStrings(
	"Connect",
	"ViewUnderlyingData",
	"CommentOnViews",
)

// IsObsolete reports whether a capability is on the exclusion table.
func IsObsolete(c Capability) bool {
	return obsoleteCapabilities.Contains(string(c))
}

// Excluded reports whether the (capability, mode) pair must be
// stripped from a destination permission set.
func Excluded(c Capability, m Mode) bool {
	if IsObsolete(c) {
		return true
	}
	if c == InheritedProjectLeader {
		return true
	}
	if c == ProjectLeader && m == Deny {
		return true
	}
	return false
}

// GranteeCapability is one grantee's set of capability grants on a
// content item.
type GranteeCapability struct {
	GranteeType  GranteeType
	GranteeID    string
	Capabilities map[Capability]Mode
}

// NewGranteeCapability returns a grant set for the given grantee.
func NewGranteeCapability(t GranteeType, id string) GranteeCapability {
	return GranteeCapability{
		GranteeType:  t,
		GranteeID:    id,
		Capabilities: make(map[Capability]Mode),
	}
}

// Grant records a capability grant. A conflicting mode for an already
// recorded capability resolves to Deny.
func (g *GranteeCapability) Grant(c Capability, m Mode) {
	if g.Capabilities == nil {
		g.Capabilities = make(map[Capability]Mode)
	}
	if existing, ok := g.Capabilities[c]; ok && existing != m {
		g.Capabilities[c] = Deny
		return
	}
	g.Capabilities[c] = m
}

// Merge folds another grantee's capabilities into this one, resolving
// conflicts in favour of Deny.
func (g *GranteeCapability) Merge(other GranteeCapability) {
	for c, m := range other.Capabilities {
		g.Grant(c, m)
	}
}

// Strip removes grants on the exclusion table, returning the names of
// the capabilities removed.
func (g *GranteeCapability) Strip() []Capability {
	var removed []Capability
	for c, m := range g.Capabilities {
		if Excluded(c, m) {
			removed = append(removed, c)
			delete(g.Capabilities, c)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

// Clone returns a deep copy.
func (g GranteeCapability) Clone() GranteeCapability {
	copied := NewGranteeCapability(g.GranteeType, g.GranteeID)
	for c, m := range g.Capabilities {
		copied.Capabilities[c] = m
	}
	return copied
}
