package repo

import (
	"context"
	"time"

	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	// GetActiveUserByID resolves a user filtering on is_active = true.
	GetActiveUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	GetUserByNationalID(ctx context.Context, nationalID string) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) error

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}
