package relationship

import (
	"time"

	"github.com/google/uuid"
)

// CareRelationship links a doctor to a patient under their care. The pair is
// unique; assigning an already-linked patient is a no-op.
type CareRelationship struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
