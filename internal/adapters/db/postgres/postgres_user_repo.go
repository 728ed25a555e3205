package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	res := p.db.WithContext(ctx).Create(&user)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			// Which constraint lost the race decides the conflict reported
			// to the caller.
			if strings.Contains(err.Error(), "national_id") {
				return uuid.Nil, customErrors.ErrNationalIDAlreadyExists
			}
			return uuid.Nil, customErrors.ErrUserAlreadyExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return user.ID, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.getUser(ctx, "email = ?", email)
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.getUser(ctx, "id = ?", id)
}

func (p *PostgresUserRepo) GetActiveUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.getUser(ctx, "id = ? AND is_active = ?", id, true)
}

func (p *PostgresUserRepo) GetUserByNationalID(ctx context.Context, nationalID string) (model.User, error) {
	return p.getUser(ctx, "national_id = ?", nationalID)
}

func (p *PostgresUserRepo) getUser(ctx context.Context, query string, args ...interface{}) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where(query, args...).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrUserNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "getUser")
	}
	return u, nil
}

func (p *PostgresUserRepo) UpdateUser(ctx context.Context, user model.User) error {
	res := p.db.WithContext(ctx).Save(&user)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "UpdateUser")
	}
	return nil
}

func (p *PostgresUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "UpdatePassword")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrUserNotFound
	}
	return nil
}

func (p *PostgresUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("last_login_at", at)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "TouchLastLogin")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrUserNotFound
	}
	return nil
}

func (p *PostgresUserRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_verified":    true,
			"email_verified_at": at,
		})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "MarkEmailVerified")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrUserNotFound
	}
	return nil
}

// isUniqueViolation recognizes duplicate-key failures both from the postgres
// driver (SQLSTATE 23505) and from gorm's translated error, which the
// sqlite-backed tests produce.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
