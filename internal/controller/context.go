package controller

import (
	"context"

	"github.com/reviewroom/server/internal/repository/connection"
)

type ctxKey string

const (
	sessionKey ctxKey = "session"
	tokenKey   ctxKey = "token"
)

func withSession(ctx context.Context, session connection.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func (c *controller) getSessionFromCtx(ctx context.Context) connection.Session {
	if s, ok := ctx.Value(sessionKey).(connection.Session); ok {
		return s
	}
	return connection.Session{}
}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func (c *controller) getTokenFromCtx(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey).(string); ok {
		return t
	}
	return ""
}
