package auth

import (
	"context"

	"github.com/2beens/stravainsights/internal/apierr"
)

// Identity is the resolved caller of an authorized request
type Identity struct {
	UserID      int64
	StravaID    int64
	DisplayName string
}

type identityCtxKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return identity, ok && identity != nil
}

// RequireIdentity is IdentityFromContext for handlers mounted behind RequireAuth
func RequireIdentity(ctx context.Context) (*Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, apierr.Unauthenticated("authentication required")
	}
	return identity, nil
}
