package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a recurring follow-up schedule a doctor keeps for a patient.
//
// A plan is due for notification when it is active, next_due_at has passed
// and last_notified_at differs from next_due_at. Completing a plan
// deactivates it and forks a successor carrying predecessor_id, so a
// retried completion finds the existing fork instead of creating another.
type Plan struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PredecessorID   *uuid.UUID `db:"predecessor_id" json:"predecessor_id,omitempty"`
	Title           string     `db:"title" json:"title"`
	Sector          string     `db:"sector" json:"sector"`
	FrequencyDays   int        `db:"frequency_days" json:"frequency_days"`
	NextDueAt       time.Time  `db:"next_due_at" json:"next_due_at"`
	LastNotifiedAt  *time.Time `db:"last_notified_at" json:"last_notified_at,omitempty"`
	LastCompletedAt *time.Time `db:"last_completed_at" json:"last_completed_at,omitempty"`
	Active          bool       `db:"active" json:"active"`
	Notes           string     `db:"notes" json:"notes"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
