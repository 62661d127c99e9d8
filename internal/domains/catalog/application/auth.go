package application

import (
	"context"
	"time"
)

// AuthContext records who was let into the admin views and when.
type AuthContext struct {
	Subject   string
	GrantedAt time.Time
}

type authKey struct{}

// WithAuth returns a context carrying auth.
func WithAuth(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, auth)
}

// AuthFromContext returns the AuthContext placed by WithAuth, if any.
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authKey{}).(AuthContext)
	return auth, ok
}
