package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetBySubject(ctx context.Context, subject string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetServiceAccount(ctx context.Context) (*User, error)
	ListByHospital(ctx context.Context, hospitalID string, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	// LinkSubject attaches an identity-provider subject to an account on its
	// first login.
	LinkSubject(ctx context.Context, id uuid.UUID, subject string) error
}
