package directory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
}
