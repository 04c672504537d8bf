// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package siterole defines the site role names used by server and
// cloud deployments and the fixed translation between them.
package siterole

import (
	"strings"

	"github.com/juju/errors"
)

// Role is a site role name.
type Role string

const (
	Creator                   Role = "Creator"
	Explorer                  Role = "Explorer"
	ExplorerCanPublish        Role = "ExplorerCanPublish"
	Guest                     Role = "Guest"
	ServerAdministrator       Role = "ServerAdministrator"
	SiteAdministratorCreator  Role = "SiteAdministratorCreator"
	SiteAdministratorExplorer Role = "SiteAdministratorExplorer"
	SupportUser               Role = "SupportUser"
	Unlicensed                Role = "Unlicensed"
	Viewer                    Role = "Viewer"
)

var allRoles = []Role{
	Creator,
	Explorer,
	ExplorerCanPublish,
	Guest,
	ServerAdministrator,
	SiteAdministratorCreator,
	SiteAdministratorExplorer,
	SupportUser,
	Unlicensed,
	Viewer,
}

// Parse matches a role name case-insensitively, returning the
// canonical Role.
func Parse(s string) (Role, error) {
	for _, r := range allRoles {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", errors.NotValidf("site role %q", s)
}

// cloudRoles translates server-only roles to their closest cloud
// equivalent. Roles absent from the table are valid on cloud as-is.
var cloudRoles = map[Role]Role{
	ServerAdministrator: SiteAdministratorCreator,
	Guest:               Viewer,
	SupportUser:         Viewer,
}

// ToCloud returns the cloud equivalent of a role. The match on the
// input name is case-insensitive; an unrecognised or blank role is
// returned unchanged with ok=false.
func ToCloud(name string) (Role, bool) {
	r, err := Parse(name)
	if err != nil {
		return Role(name), false
	}
	if mapped, found := cloudRoles[r]; found {
		return mapped, true
	}
	return r, true
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
