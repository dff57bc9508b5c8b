package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked-token:"

var ErrUnavailable = errors.New("token store unavailable")

// repo tracks revoked token ids. Entries expire together with the token
// itself, so the set never grows past the active token window. A nil client
// disables revocation tracking.
type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

func (r *repo) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	funcName := "token.redis.Revoke"
	r.logger.DebugContext(ctx, funcName, "jti", jti)

	if r.rc == nil {
		return ErrUnavailable
	}

	return r.rc.Set(ctx, revokedTokenPrefix+jti, "1", ttl).Err()
}

func (r *repo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.rc == nil {
		return false, nil
	}

	n, err := r.rc.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
