package auth

import (
	"context"
	"time"

	"rbacadmin/internal/models"
)

type ctxKey string

const (
	claimsKey ctxKey = "userClaims"
	userKey   ctxKey = "currentUser"
)

type Claims struct {
	Subject   string
	UserID    uint
	JWTID     string
	ExpiresAt time.Time
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the user loaded by JWTAuth, or nil.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// CanAccessUser reports whether the current user is userID or a superuser.
func CanAccessUser(ctx context.Context, userID uint) bool {
	u := CurrentUser(ctx)
	return u != nil && (u.IsSuperuser || u.ID == userID)
}
