package auth

import (
	"context"

	"github.com/bagaart/TaskFlow/internal/models"
)

type contextKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the user stored by Middleware, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(contextKey{}).(*models.User)
	return u
}
