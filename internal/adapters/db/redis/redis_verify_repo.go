package redis

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisVerifyRepo keeps password-reset and email-verification tokens.
// Redis owns expiry via key TTLs; consumption is a GETDEL so every token is
// single-use regardless of outcome.
type RedisVerifyRepo struct {
	client *redis.Client
}

func NewRedisVerifyRepo(client *redis.Client) *RedisVerifyRepo {
	return &RedisVerifyRepo{client: client}
}

func (r *RedisVerifyRepo) StoreResetToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	return r.client.Set(ctx, resetKey(userID), token, ttl).Err()
}

func (r *RedisVerifyRepo) ConsumeResetToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	return r.consume(ctx, resetKey(userID), token)
}

func (r *RedisVerifyRepo) StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	return r.client.Set(ctx, verifyKey(userID), token, ttl).Err()
}

func (r *RedisVerifyRepo) ConsumeVerificationToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	return r.consume(ctx, verifyKey(userID), token)
}

func (r *RedisVerifyRepo) consume(ctx context.Context, key, token string) (bool, error) {
	stored, err := r.client.GetDel(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return false, nil // absent or expired
	case err != nil:
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

func resetKey(userID uuid.UUID) string {
	return "reset:" + userID.String()
}

func verifyKey(userID uuid.UUID) string {
	return "verify:" + userID.String()
}
