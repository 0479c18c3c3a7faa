package directory

import (
	"time"

	"github.com/google/uuid"
)

// User is a read-only projection of an account. Credentials live in the
// identity provider; this table only supplies lookup and display data.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
