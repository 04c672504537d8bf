// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package content

import (
	"fmt"

	"github.com/juju/errors"
)

// Reference identifies an item in either the source or the destination
// system. References are immutable; a changed identity is represented
// by a new Reference replacing the old one.
type Reference struct {
	// ID is the opaque system-assigned identifier, typically a UUID.
	ID string

	// Location is the path-like location of the item within its site.
	Location Location

	// ContentURL is the system-specific URL slug for the item. It may
	// be empty for content types that have no URL.
	ContentURL string
}

// NewReference returns a Reference with the given identity. The ID and
// location are required.
func NewReference(id string, location Location, contentURL string) (Reference, error) {
	if id == "" {
		return Reference{}, errors.NotValidf("empty reference ID")
	}
	if location.IsEmpty() {
		return Reference{}, errors.NotValidf("reference %q with empty location", id)
	}
	return Reference{ID: id, Location: location, ContentURL: contentURL}, nil
}

// IsZero reports whether the reference carries no identity at all.
func (r Reference) IsZero() bool {
	return r.ID == "" && r.Location.IsEmpty() && r.ContentURL == ""
}

// Equals reports whether two references identify the same item in the
// same system.
func (r Reference) Equals(other Reference) bool {
	return r.ID == other.ID &&
		r.Location.Equals(other.Location) &&
		r.ContentURL == other.ContentURL
}

// String implements fmt.Stringer.
func (r Reference) String() string {
	return fmt.Sprintf("%s (%s)", r.Location, r.ID)
}
