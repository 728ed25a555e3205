package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/casaviva/auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	"github.com/casaviva/auth-service/internal/domain/auth/jwt"
	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/casaviva/auth-service/internal/domain/auth/repo"
	"github.com/casaviva/auth-service/internal/infra/config"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
)

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type authService struct {
	userRepo   repo.UserRepo
	tokenRepo  repo.RefreshTokenRepo
	verifyRepo repo.VerifyTokenRepo
	jwtUtil    jwt.JWTUtil
	cfg        *config.Config
	v          *validator.Validate
	log        *zap.Logger
}

type Service interface {
	Register(ctx context.Context, in dto.RegisterDTO) (model.User, model.TokenPair, error)
	Login(ctx context.Context, in dto.LoginDTO) (model.User, model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, in dto.ChangePasswordDTO) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in dto.ResetPasswordDTO) error
	Profile(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in dto.UpdateProfileDTO) (model.User, error)
	VerifyEmail(ctx context.Context, userID uuid.UUID, token string) error
	ResendVerification(ctx context.Context, userID uuid.UUID) (string, error)
}

func New(
	ur repo.UserRepo,
	tr repo.RefreshTokenRepo,
	vr repo.VerifyTokenRepo,
	jm jwt.JWTUtil,
	cfg *config.Config,
	v *validator.Validate,
	log *zap.Logger,
) Service {
	return &authService{
		userRepo: ur, tokenRepo: tr, verifyRepo: vr,
		jwtUtil: jm, cfg: cfg, v: v, log: log,
	}
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (model.User, model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.User{}, model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	email := normalizeEmail(in.Email)

	if _, err := a.userRepo.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, model.TokenPair{}, customErrors.ErrUserAlreadyExists
	} else if !errors.Is(err, customErrors.ErrUserNotFound) {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	var nationalID *string
	if in.NationalID != "" {
		if _, err := a.userRepo.GetUserByNationalID(ctx, in.NationalID); err == nil {
			return model.User{}, model.TokenPair{}, customErrors.ErrNationalIDAlreadyExists
		} else if !errors.Is(err, customErrors.ErrUserNotFound) {
			return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
		}
		nationalID = &in.NationalID
	}

	role := model.DefaultRole
	if in.Role != "" {
		role = model.Role(in.Role)
		if !role.Valid() {
			return model.User{}, model.TokenPair{}, customErrors.NewInvalidArgument("unknown role")
		}
	}

	passwordHash, err := argon2id.CreateHash(in.Password+a.cfg.PasswordPepper, argonParams)
	if err != nil {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		NationalID:   nationalID,
		PasswordHash: passwordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         role,
		IsActive:     true,
	}

	// The unique constraints on email and national_id close the race left
	// open by the pre-checks above; a lost race surfaces as the same
	// conflict error.
	if _, err = a.userRepo.CreateUser(ctx, user); err != nil {
		if customErrors.IsConflict(err) {
			return model.User{}, model.TokenPair{}, err
		}
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	verifyToken := uuid.NewString()
	if err := a.verifyRepo.StoreVerificationToken(ctx, user.ID, verifyToken, a.cfg.VerificationTokenTTL); err != nil {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}
	// Delivery goes through an external notifier; the token is logged for
	// out-of-band dev flows only.
	a.log.Debug("verification token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("token", verifyToken),
	)

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return model.User{}, model.TokenPair{}, err
	}

	a.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, pair, nil
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.User, model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.User{}, model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.userRepo.GetUserByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		// Same failure as a wrong password so responses cannot be used to
		// probe which emails are registered.
		return model.User{}, model.TokenPair{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}

	if !user.IsActive {
		return model.User{}, model.TokenPair{}, customErrors.ErrAccountDeactivated
	}

	ok, err := argon2id.ComparePasswordAndHash(in.Password+a.cfg.PasswordPepper, user.PasswordHash)
	if err != nil {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.User{}, model.TokenPair{}, customErrors.ErrInvalidCredentials
	}

	now := time.Now()
	if err := a.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return model.User{}, model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	user.LastLoginAt = &now

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return model.User{}, model.TokenPair{}, err
	}

	a.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return user, pair, nil
}

func (a *authService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	if _, err := a.jwtUtil.ValidateRefreshToken(refreshToken); err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	stored, err := a.tokenRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, customErrors.ErrInvalidRefreshToken) {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	now := time.Now()
	if stored.Expired(now) {
		_ = a.tokenRepo.Delete(ctx, refreshToken)
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	}

	user, err := a.userRepo.GetUserByID(ctx, stored.UserID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return model.TokenPair{}, customErrors.ErrInvalidRefreshToken
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}
	if !user.IsActive {
		return model.TokenPair{}, customErrors.ErrAccountDeactivated
	}

	at, atExp, err := a.jwtUtil.GenerateAccessToken(user)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, err := a.jwtUtil.GenerateRefreshToken(user.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	next := model.RefreshToken{
		ID:        uuid.New(),
		Token:     rt,
		UserID:    user.ID,
		ExpiresAt: rtExp,
	}

	// Rotation is atomic in storage: the presented token is deleted and the
	// replacement inserted in one transaction. A concurrent replay of the
	// same token loses the race and gets ErrInvalidRefreshToken.
	if err := a.tokenRepo.Rotate(ctx, refreshToken, next); err != nil {
		if errors.Is(err, customErrors.ErrInvalidRefreshToken) {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Rotate")
	}

	a.purgeExpired(ctx)

	a.log.Info("token refreshed", zap.String("user_id", user.ID.String()))
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    atExp.Sub(now),
		RefreshTTL:   rtExp.Sub(now),
		UserID:       user.ID,
	}, nil
}

func (a *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	// Idempotent: logging out a token that no longer exists is a no-op.
	if err := a.tokenRepo.Delete(ctx, refreshToken); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}
	return nil
}

func (a *authService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	n, err := a.tokenRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return customErrors.WrapInternal(err, "LogoutAll")
	}
	a.log.Info("all sessions revoked",
		zap.String("user_id", userID.String()),
		zap.Int64("revoked", n),
	)
	return nil
}

func (a *authService) ChangePassword(ctx context.Context, userID uuid.UUID, in dto.ChangePasswordDTO) error {
	if err := a.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return customErrors.ErrUserNotFound
	case err != nil:
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	ok, err := argon2id.ComparePasswordAndHash(in.CurrentPassword+a.cfg.PasswordPepper, user.PasswordHash)
	if err != nil {
		return customErrors.WrapInternal(err, "ChangePassword")
	}
	if !ok {
		return customErrors.ErrInvalidCurrentPassword
	}

	newHash, err := argon2id.CreateHash(in.NewPassword+a.cfg.PasswordPepper, argonParams)
	if err != nil {
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	// The hash must be durable before sessions are revoked; the reverse
	// order would leave a window where old sessions survive a crash with
	// the old password still valid.
	if err := a.userRepo.UpdatePassword(ctx, userID, newHash); err != nil {
		return customErrors.WrapInternal(err, "ChangePassword")
	}
	if err := a.LogoutAll(ctx, userID); err != nil {
		return err
	}

	a.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

func (a *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := a.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		// Reported as success upstream so the endpoint cannot be used to
		// probe which emails are registered.
		a.log.Warn("password reset requested for unknown email")
		return nil
	case err != nil:
		return customErrors.WrapInternal(err, "ForgotPassword")
	}

	token := uuid.NewString()
	if err := a.verifyRepo.StoreResetToken(ctx, user.ID, token, a.cfg.ResetTokenTTL); err != nil {
		return customErrors.WrapInternal(err, "ForgotPassword")
	}

	// Delivery goes through an external notifier.
	a.log.Info("password reset token issued", zap.String("user_id", user.ID.String()))
	a.log.Debug("password reset token", zap.String("token", token))
	return nil
}

func (a *authService) ResetPassword(ctx context.Context, in dto.ResetPasswordDTO) error {
	if err := a.v.Struct(in); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return customErrors.NewInvalidArgument("malformed user id")
	}

	ok, err := a.verifyRepo.ConsumeResetToken(ctx, userID, in.Token)
	if err != nil {
		return customErrors.WrapInternal(err, "ResetPassword")
	}
	if !ok {
		return customErrors.ErrInvalidToken
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return customErrors.ErrUserNotFound
	case err != nil:
		return customErrors.WrapInternal(err, "ResetPassword")
	}

	newHash, err := argon2id.CreateHash(in.NewPassword+a.cfg.PasswordPepper, argonParams)
	if err != nil {
		return customErrors.WrapInternal(err, "ResetPassword")
	}
	if err := a.userRepo.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return customErrors.WrapInternal(err, "ResetPassword")
	}
	if err := a.LogoutAll(ctx, user.ID); err != nil {
		return err
	}

	a.log.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

func (a *authService) Profile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return model.User{}, customErrors.ErrUserNotFound
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "Profile")
	}
	return user, nil
}

func (a *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, in dto.UpdateProfileDTO) (model.User, error) {
	if err := a.v.Struct(in); err != nil {
		return model.User{}, customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return model.User{}, customErrors.ErrUserNotFound
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "UpdateProfile")
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}

	if err := a.userRepo.UpdateUser(ctx, user); err != nil {
		return model.User{}, customErrors.WrapInternal(err, "UpdateProfile")
	}
	return user, nil
}

func (a *authService) VerifyEmail(ctx context.Context, userID uuid.UUID, token string) error {
	ok, err := a.verifyRepo.ConsumeVerificationToken(ctx, userID, token)
	if err != nil {
		return customErrors.WrapInternal(err, "VerifyEmail")
	}
	if !ok {
		return customErrors.ErrInvalidToken
	}

	if err := a.userRepo.MarkEmailVerified(ctx, userID, time.Now()); err != nil {
		if errors.Is(err, customErrors.ErrUserNotFound) {
			return customErrors.ErrUserNotFound
		}
		return customErrors.WrapInternal(err, "VerifyEmail")
	}

	a.log.Info("email verified", zap.String("user_id", userID.String()))
	return nil
}

func (a *authService) ResendVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := a.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrUserNotFound):
		return "", customErrors.ErrUserNotFound
	case err != nil:
		return "", customErrors.WrapInternal(err, "ResendVerification")
	}

	if user.EmailVerified {
		return "", customErrors.ErrEmailAlreadyVerified
	}

	token := uuid.NewString()
	if err := a.verifyRepo.StoreVerificationToken(ctx, user.ID, token, a.cfg.VerificationTokenTTL); err != nil {
		return "", customErrors.WrapInternal(err, "ResendVerification")
	}

	a.log.Info("verification token reissued", zap.String("user_id", user.ID.String()))
	return token, nil
}

// issueTokens mints a fresh pair for register and login. Refresh has its own
// path because rotation must consume the presented token in the same
// transaction that stores the replacement.
func (a *authService) issueTokens(ctx context.Context, user model.User) (model.TokenPair, error) {
	at, atExp, err := a.jwtUtil.GenerateAccessToken(user)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, err := a.jwtUtil.GenerateRefreshToken(user.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	if err := a.tokenRepo.Store(ctx, model.RefreshToken{
		ID:        uuid.New(),
		Token:     rt,
		UserID:    user.ID,
		ExpiresAt: rtExp,
	}); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "StoreRefresh")
	}

	a.purgeExpired(ctx)

	now := time.Now()
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    atExp.Sub(now),
		RefreshTTL:   rtExp.Sub(now),
		UserID:       user.ID,
	}, nil
}

// purgeExpired drops dead refresh rows as a side effect of issuance. There
// is no dedicated sweeper; the cost is amortized across logins.
func (a *authService) purgeExpired(ctx context.Context) {
	if _, err := a.tokenRepo.PurgeExpired(ctx, time.Now()); err != nil {
		a.log.Warn("purge expired refresh tokens", zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
