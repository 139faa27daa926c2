// Package locations persists a per-user ordered collection of saved
// locations on top of the key-value store, and owns the validation and
// duplicate-name rules for it.
package locations

import (
	"strings"
	"time"
)

// Coordinates is a WGS 84 point. Immutable after a location is created.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// SavedLocation is one entry in a user's collection.
type SavedLocation struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Query       string      `json:"query"`
	AddedAt     time.Time   `json:"addedAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Candidate is the caller-supplied input for creating a location.
type Candidate struct {
	Name        string      `json:"name" validate:"required"`
	Coordinates Coordinates `json:"coordinates"`
	Query       string      `json:"query" validate:"required"`
}

// Patch carries the fields an update may change. Nil fields are left as
// stored. ID, coordinates, and the creation timestamp are never patchable.
type Patch struct {
	Name  *string `json:"name,omitempty"`
	Query *string `json:"query,omitempty"`
}

// envelope is the versioned wrapper persisted per user. The version tag is
// for forward compatibility; ordering is insertion order.
type envelope struct {
	Version   int             `json:"version"`
	Locations []SavedLocation `json:"locations"`
}

const envelopeVersion = 1

const storageKeyPrefix = "weatherAppLocations_"

func storageKey(email string) string {
	return storageKeyPrefix + email
}

// normalizeName is the form in which display names are compared for
// uniqueness within one user's collection.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
