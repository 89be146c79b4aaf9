// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"
)

// Identity is one enrolled person. Values are never mutated after enrollment.
type Identity struct {
	InternalID  int64     // assigned by the gallery, never reused
	ExternalID  string    // caller supplied, e.g. a roll number; optional but unique
	DisplayName string    // human readable, not unique
	Section     string    // free-text grouping label
	Grade       string    // free-text grade level
	Vector      []float64 // feature vector, fixed dimension
	EnrolledAt  time.Time
}

// AttendanceEvent is an accepted attendance, handed to the persistence collaborator.
type AttendanceEvent struct {
	ID          string // uuid
	InternalID  int64
	ExternalID  string
	DisplayName string
	Section     string
	Location    string
	Timestamp   time.Time
}

// NewAttendanceEvent builds the event for an accepted identity.
func NewAttendanceEvent(id string, identity *Identity, location string, at time.Time) AttendanceEvent {
	return AttendanceEvent{
		ID:          id,
		InternalID:  identity.InternalID,
		ExternalID:  identity.ExternalID,
		DisplayName: identity.DisplayName,
		Section:     identity.Section,
		Location:    location,
		Timestamp:   at,
	}
}

// ValidateVector checks dimensionality and that every component is finite.
func ValidateVector(v []float64, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: dimension %d, want %d", ErrInvalidVector, len(v), dim)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: component %d is not finite", ErrInvalidVector, i)
		}
	}
	return nil
}

// CloneVector returns a copy of v that the caller cannot alias.
func CloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
