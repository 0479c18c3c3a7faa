package relationship

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Add(ctx context.Context, doctorID, patientID uuid.UUID) error
	Remove(ctx context.Context, doctorID, patientID uuid.UUID) error
	Exists(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
	ListPatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
	ListDoctorIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}
