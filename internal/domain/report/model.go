package report

import (
	"time"

	"github.com/google/uuid"
)

// Report is a read-only reference to a clinical report owned by a doctor
// for a patient. Message threads and alerts hang off these rows; the
// documents themselves are managed elsewhere.
type Report struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Title     string     `db:"title" json:"title"`
	Shared    bool       `db:"shared" json:"shared"`
	SharedAt  *time.Time `db:"shared_at" json:"shared_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
