package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// TokenRevocationRepository remembers token IDs that were logged out before
// their natural expiry.
type TokenRevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type tokenRevocationRepository struct {
	client redis.UniversalClient
}

// NewTokenRevocationRepository returns a Redis-backed implementation.
func NewTokenRevocationRepository(client redis.UniversalClient) TokenRevocationRepository {
	return &tokenRevocationRepository{client: client}
}

// Revoke stores the token ID until ttl elapses. Non-positive ttls are a no-op:
// the token has already expired.
func (r *tokenRevocationRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *tokenRevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
