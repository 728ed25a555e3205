package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/casaviva/auth-service/internal/domain/auth/errors"
	"github.com/casaviva/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresTokenRepo struct {
	db *gorm.DB
}

func NewPostgresTokenRepo(db *gorm.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

func (p *PostgresTokenRepo) Store(ctx context.Context, t model.RefreshToken) error {
	res := p.db.WithContext(ctx).Create(&t)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "Store")
	}
	return nil
}

func (p *PostgresTokenRepo) GetByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	var t model.RefreshToken
	res := p.db.WithContext(ctx).Where("token = ?", token).First(&t)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.RefreshToken{}, customErrors.ErrInvalidRefreshToken
	}
	if err := res.Error; err != nil {
		return model.RefreshToken{}, customErrors.WrapInternal(err, "GetByToken")
	}
	return t, nil
}

// Rotate consumes oldToken and inserts next in one transaction. The row
// lock on the old token serializes concurrent rotations of the same value;
// whoever loses sees zero rows deleted and fails with
// ErrInvalidRefreshToken, so a consumed token can never be replayed.
func (p *PostgresTokenRepo) Rotate(ctx context.Context, oldToken string, next model.RefreshToken) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old model.RefreshToken
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token = ?", oldToken).
			First(&old)
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return customErrors.ErrInvalidRefreshToken
		}
		if res.Error != nil {
			return res.Error
		}

		if res := tx.Where("token = ?", oldToken).Delete(&model.RefreshToken{}); res.Error != nil {
			return res.Error
		} else if res.RowsAffected == 0 {
			return customErrors.ErrInvalidRefreshToken
		}

		return tx.Create(&next).Error
	})
	if err != nil {
		if errors.Is(err, customErrors.ErrInvalidRefreshToken) {
			return err
		}
		return customErrors.WrapInternal(err, "Rotate")
	}
	return nil
}

func (p *PostgresTokenRepo) Delete(ctx context.Context, token string) error {
	res := p.db.WithContext(ctx).Where("token = ?", token).Delete(&model.RefreshToken{})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "Delete")
	}
	return nil
}

func (p *PostgresTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshToken{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapInternal(err, "DeleteByUser")
	}
	return res.RowsAffected, nil
}

func (p *PostgresTokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.RefreshToken{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapInternal(err, "PurgeExpired")
	}
	return res.RowsAffected, nil
}
