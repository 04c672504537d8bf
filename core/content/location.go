// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package content

import (
	"strings"

	"github.com/juju/errors"
)

// PathSeparator joins the segments of a content location when it is
// rendered as a single path string.
const PathSeparator = "/"

// Location identifies an item within a site by its path of name
// segments (for example project/sub-project/workbook), independent of
// any system-assigned identifier. Locations are immutable values;
// methods that alter the path return a new Location.
type Location struct {
	segments []string
	path     string
}

// NewLocation returns a Location for the given path segments. Empty
// segments are not valid.
func NewLocation(segments ...string) (Location, error) {
	for _, s := range segments {
		if s == "" {
			return Location{}, errors.NotValidf("empty location segment")
		}
	}
	return newLocation(segments), nil
}

// MustNewLocation is like NewLocation but panics on error. It is
// intended for statically known paths, typically in tests.
func MustNewLocation(segments ...string) Location {
	loc, err := NewLocation(segments...)
	if err != nil {
		panic(err)
	}
	return loc
}

func newLocation(segments []string) Location {
	copied := make([]string, len(segments))
	copy(copied, segments)
	return Location{
		segments: copied,
		path:     strings.Join(copied, PathSeparator),
	}
}

// UserLocation returns the canonical location for a username within an
// authentication domain. A user outside any domain has a single-segment
// location.
func UserLocation(domain, username string) Location {
	if domain == "" {
		return newLocation([]string{username})
	}
	return newLocation([]string{domain, username})
}

// IsEmpty reports whether the location has no segments.
func (l Location) IsEmpty() bool {
	return len(l.segments) == 0
}

// Len returns the number of path segments.
func (l Location) Len() int {
	return len(l.segments)
}

// Segments returns a copy of the location's path segments.
func (l Location) Segments() []string {
	copied := make([]string, len(l.segments))
	copy(copied, l.segments)
	return copied
}

// Name returns the final path segment, or the empty string for an
// empty location.
func (l Location) Name() string {
	if len(l.segments) == 0 {
		return ""
	}
	return l.segments[len(l.segments)-1]
}

// Parent returns the location with the final segment removed.
func (l Location) Parent() Location {
	if len(l.segments) == 0 {
		return Location{}
	}
	return newLocation(l.segments[:len(l.segments)-1])
}

// Append returns the location extended with the given segment.
func (l Location) Append(segment string) Location {
	return newLocation(append(l.Segments(), segment))
}

// Rename returns the location with the final segment replaced.
func (l Location) Rename(name string) Location {
	if len(l.segments) == 0 {
		return newLocation([]string{name})
	}
	segments := l.Segments()
	segments[len(segments)-1] = name
	return newLocation(segments)
}

// Key returns a stable string form of the location suitable for use as
// a map key. Equality of keys is equality of locations.
func (l Location) Key() string {
	return l.path
}

// Equals reports structural equality with another location.
func (l Location) Equals(other Location) bool {
	return l.path == other.path && len(l.segments) == len(other.segments)
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return l.path
}
