package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserId string
}

type iRevocationStore interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type service struct {
	secret      []byte
	revocations iRevocationStore
	logger      *slog.Logger
}

// NewService verifies HS256 tokens signed with secret. revocations may be
// nil, in which case revocation checks are skipped.
func NewService(secret string, revocations iRevocationStore, logger *slog.Logger) *service {
	return &service{
		secret:      []byte(secret),
		revocations: revocations,
		logger:      logger,
	}
}

func (s *service) VerifyToken(ctx context.Context, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userId, ok := claims["user_id"].(string)
	if !ok || userId == "" {
		return Identity{}, ErrInvalidToken
	}

	if jti, ok := claims["jti"].(string); ok && jti != "" && s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, jti)
		if err != nil {
			// revocation store unreachable: accept the token, the
			// signature already checked out
			s.logger.WarnContext(ctx, "revocation check failed", "error", err)
		} else if revoked {
			return Identity{}, ErrTokenRevoked
		}
	}

	return Identity{UserId: userId}, nil
}
