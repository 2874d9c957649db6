package utils

import (
	"context"

	"office-dashboard/internal/shared/contextkeys"
)

// PrincipalLocalsKey is the fiber locals key holding the authenticated
// Principal. Websocket handlers read it from the upgraded connection.
const PrincipalLocalsKey = "principal"

// Principal is the caller on whose behalf an operation runs.
type Principal struct {
	UserID   string
	Email    string
	TenantID string
	Role     string
	// System principals (scheduler, response collector) bypass access rules.
	System bool
}

type principalKey struct{}

// WithPrincipal stores p in ctx along with the individual keys the logger reads.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = context.WithValue(ctx, contextkeys.TenantIDKey, p.TenantID)
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, p.UserID)
	if p.Email != "" {
		ctx = context.WithValue(ctx, contextkeys.UserEmailKey, p.Email)
	}
	if p.Role != "" {
		ctx = context.WithValue(ctx, contextkeys.RoleKey, p.Role)
	}
	return ctx
}

// SystemContext returns a context acting as the system inside tenantID.
func SystemContext(ctx context.Context, tenantID, name string) context.Context {
	return WithPrincipal(ctx, Principal{UserID: "system:" + name, TenantID: tenantID, Role: "system", System: true})
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithRequestID stores the request id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, id)
}
