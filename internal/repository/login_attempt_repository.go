package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptKeyPrefix = "auth:login_attempts:"

// LoginAttemptRepository counts login attempts per email inside a window.
// Increment is atomic, so its result alone decides a lockout.
type LoginAttemptRepository interface {
	Increment(ctx context.Context, email string, window time.Duration) (int64, error)
	Reset(ctx context.Context, email string) error
}

type loginAttemptRepository struct {
	client redis.UniversalClient
}

// NewLoginAttemptRepository returns a Redis-backed implementation.
func NewLoginAttemptRepository(client redis.UniversalClient) LoginAttemptRepository {
	return &loginAttemptRepository{client: client}
}

// Increment bumps the counter. The window starts at the first failure and
// is not extended by later ones.
func (r *loginAttemptRepository) Increment(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := loginAttemptKey(email)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *loginAttemptRepository) Reset(ctx context.Context, email string) error {
	return r.client.Del(ctx, loginAttemptKey(email)).Err()
}

func loginAttemptKey(email string) string {
	return loginAttemptKeyPrefix + NormalizeEmail(email)
}
