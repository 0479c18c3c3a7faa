package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error)
	ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error)
	ListDue(ctx context.Context, now time.Time) ([]*Plan, error)

	// ClaimNotification atomically stamps last_notified_at = next_due_at,
	// succeeding only while the plan is active and last_notified_at still
	// differs from the given due time. A false return means another pass
	// already claimed this due date.
	ClaimNotification(ctx context.Context, id uuid.UUID, nextDueAt time.Time) (bool, error)

	// Deactivate marks an active plan complete. A false return means the
	// plan was already inactive.
	Deactivate(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)

	// FindSuccessor returns the plan forked from the given one, or
	// pgx.ErrNoRows when no fork exists yet.
	FindSuccessor(ctx context.Context, predecessorID uuid.UUID) (*Plan, error)
}
