package repo

import (
	"context"
	"time"

	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

// RefreshTokenRepo persists refresh tokens. A token row exists exactly as
// long as the session it delegates; rotation replaces the row atomically.
type RefreshTokenRepo interface {
	Store(ctx context.Context, t model.RefreshToken) error

	GetByToken(ctx context.Context, token string) (model.RefreshToken, error)

	// Rotate deletes the presented token and inserts its replacement in a
	// single transaction. A token that has already been consumed yields
	// ErrInvalidRefreshToken, which keeps rotation single-use under
	// concurrent replay.
	Rotate(ctx context.Context, oldToken string, next model.RefreshToken) error

	// Delete removes the token if present. Absence is not an error.
	Delete(ctx context.Context, token string) error

	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// VerifyTokenRepo holds short-lived, single-use password-reset and
// email-verification tokens.
type VerifyTokenRepo interface {
	StoreResetToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error

	// ConsumeResetToken deletes the stored token and reports whether the
	// presented value matched it.
	ConsumeResetToken(ctx context.Context, userID uuid.UUID, token string) (bool, error)

	StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error

	ConsumeVerificationToken(ctx context.Context, userID uuid.UUID, token string) (bool, error)
}
