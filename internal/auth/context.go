package auth

import (
	"context"
	"time"
)

// Identity is what the access middleware learned from a verified token.
type Identity struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
