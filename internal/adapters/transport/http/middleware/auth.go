package middleware

import (
	"errors"
	"net/http"
	"strings"

	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	"github.com/casaviva/auth-service/internal/domain/auth/jwt"
	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/casaviva/auth-service/internal/domain/auth/repo"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const identityKey = "auth.identity"

// Gate authenticates incoming requests. Beyond verifying the token's
// signature and expiry it re-resolves the user, so a deactivated account is
// rejected even while its access tokens are still cryptographically valid.
type Gate struct {
	users   repo.UserRepo
	jwtUtil jwt.JWTUtil
	log     *zap.Logger
}

func NewGate(users repo.UserRepo, jwtUtil jwt.JWTUtil, log *zap.Logger) *Gate {
	return &Gate{users: users, jwtUtil: jwtUtil, log: log}
}

// Authenticate rejects the request unless a valid bearer token maps to an
// active, email-verified user. On success the identity is attached to the
// request context; on failure the chain is aborted and downstream handlers
// never run.
func (g *Gate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := g.resolve(c)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// OptionalAuthenticate runs the same checks but lets the request through
// without an identity on any failure. Used for endpoints with mixed
// public/authenticated behavior.
func (g *Gate) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, err := g.resolve(c); err == nil {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

func (g *Gate) resolve(c *gin.Context) (model.Identity, error) {
	raw, err := bearerToken(c)
	if err != nil {
		return model.Identity{}, err
	}

	claims, err := g.jwtUtil.ValidateAccessToken(raw)
	if err != nil {
		if errors.Is(err, customErrors.ErrTokenExpired) {
			return model.Identity{}, customErrors.ErrTokenExpired
		}
		return model.Identity{}, customErrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Identity{}, customErrors.ErrInvalidToken
	}

	user, err := g.users.GetActiveUserByID(c.Request.Context(), userID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return model.Identity{}, customErrors.ErrUserNotFound
	case err != nil:
		g.log.Error("resolve user", zap.Error(err))
		return model.Identity{}, customErrors.WrapInternal(err, "authenticate")
	}

	if !user.EmailVerified {
		return model.Identity{}, customErrors.ErrEmailNotVerified
	}

	return model.Identity{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// RequireRole composes after Authenticate. Without an identity in the
// context it rejects as unauthenticated rather than forbidden.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			abortUnauthorized(c, customErrors.ErrNotAuthenticated)
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": customErrors.ErrInsufficientPermissions.Error(),
			"code":    customErrors.Code(customErrors.ErrInsufficientPermissions),
		})
	}
}

// IdentityFrom returns the identity attached by Authenticate, if any.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", customErrors.ErrTokenRequired
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", customErrors.ErrTokenRequired
	}
	return token, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	status := http.StatusUnauthorized
	if customErrors.IsInternal(err) {
		status = http.StatusInternalServerError
		err = errors.New("internal server error")
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": err.Error(),
		"code":    customErrors.Code(err),
	})
}
