package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enrollment status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
	StatusCancelled = "cancelled"
)

// Enrollment tracks one contact's progress through one sequence.
type Enrollment struct {
	ID          string
	ContactID   uuid.UUID
	SequenceID  string
	CurrentStep int
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// NewEnrollmentID builds the composite enrollment identifier. The nanosecond
// suffix keeps re-enrollments of the same pair distinct.
func NewEnrollmentID(contactID uuid.UUID, sequenceID string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", contactID, sequenceID, now.UnixNano())
}

// NewEnrollment starts a contact at the first step of a sequence.
func NewEnrollment(contactID uuid.UUID, sequenceID string, now time.Time) Enrollment {
	return Enrollment{
		ID:          NewEnrollmentID(contactID, sequenceID, now),
		ContactID:   contactID,
		SequenceID:  sequenceID,
		CurrentStep: 0,
		Status:      StatusActive,
		StartedAt:   now,
	}
}

// IsTerminal reports whether the enrollment can no longer change state.
func (e Enrollment) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusCancelled
}
