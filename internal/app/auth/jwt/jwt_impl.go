package jwt

import (
	"errors"
	"time"

	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	domainJWT "github.com/casaviva/auth-service/internal/domain/auth/jwt"
	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/casaviva/auth-service/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTUtilImpl struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
}

func NewJWTUtil(cfg *config.Config) (*JWTUtilImpl, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, customErrors.NewInvalidArgument("token secrets must be set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, customErrors.NewInvalidArgument("access and refresh secrets must differ")
	}

	return &JWTUtilImpl{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		issuer:        cfg.JWTIssuer,
		audience:      cfg.JWTAudience,
	}, nil
}

func (j *JWTUtilImpl) GenerateAccessToken(u model.User) (string, time.Time, error) {
	now := time.Now()

	claims := domainJWT.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			ID:        uuid.NewString(),
		},
		Email: u.Email,
		Role:  u.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign access token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

func (j *JWTUtilImpl) GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()

	claims := domainJWT.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign refresh token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

func (j *JWTUtilImpl) ValidateAccessToken(raw string) (domainJWT.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &domainJWT.AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, customErrors.ErrInvalidToken
		}
		return j.accessSecret, nil
	}, jwt.WithIssuedAt())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domainJWT.AccessClaims{}, customErrors.ErrTokenExpired
		}
		return domainJWT.AccessClaims{}, customErrors.ErrInvalidToken
	}
	if !token.Valid {
		return domainJWT.AccessClaims{}, customErrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*domainJWT.AccessClaims)
	if !ok {
		return domainJWT.AccessClaims{}, customErrors.WrapInternal(
			errors.New("claims not AccessClaims"), "ValidateAccessToken",
		)
	}

	if err := j.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return domainJWT.AccessClaims{}, err
	}

	return *claims, nil
}

func (j *JWTUtilImpl) ValidateRefreshToken(raw string) (domainJWT.RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &domainJWT.RefreshClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, customErrors.ErrInvalidToken
		}
		return j.refreshSecret, nil
	}, jwt.WithIssuedAt())

	if err != nil || !token.Valid {
		return domainJWT.RefreshClaims{}, customErrors.ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(*domainJWT.RefreshClaims)
	if !ok {
		return domainJWT.RefreshClaims{}, customErrors.WrapInternal(
			errors.New("claims not RefreshClaims"), "ValidateRefreshToken",
		)
	}

	if err := j.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return domainJWT.RefreshClaims{}, customErrors.ErrInvalidRefreshToken
	}

	return *claims, nil
}

func (j *JWTUtilImpl) checkIssuerAudience(issuer string, audience jwt.ClaimStrings) error {
	if j.issuer != "" && issuer != j.issuer {
		return customErrors.ErrInvalidToken
	}

	if j.audience != "" {
		found := false
		for _, a := range audience {
			if a == j.audience {
				found = true
				break
			}
		}
		if !found {
			return customErrors.ErrInvalidToken
		}
	}
	return nil
}
