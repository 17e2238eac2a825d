package auth

import "context"

type ctxKey struct{}

// WithIdentity attaches the verified identity to the context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// IdentityFrom extracts the verified identity from the context
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(Identity)
	return identity, ok
}
