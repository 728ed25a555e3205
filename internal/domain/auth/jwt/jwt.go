package jwt

import (
	"time"

	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the signed claim bundle carried by access tokens. It is a
// denormalized snapshot of the user at issuance time; later user mutations
// are not reflected until the token is reissued.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}

// JWTUtil signs and verifies bearer tokens. Access and refresh tokens use
// independent secrets and lifetimes.
type JWTUtil interface {
	GenerateAccessToken(u model.User) (token string, expiresAt time.Time, err error)

	GenerateRefreshToken(userID uuid.UUID) (token string, expiresAt time.Time, err error)

	// ValidateAccessToken fails with ErrTokenExpired for expired tokens and
	// ErrInvalidToken for everything else that does not verify.
	ValidateAccessToken(raw string) (AccessClaims, error)

	ValidateRefreshToken(raw string) (RefreshClaims, error)
}
