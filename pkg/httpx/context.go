package httpx

import (
	"context"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyIdentity ctxKey = "identity"
	CtxKeyClaims   ctxKey = "claims"
	CtxKeyDecision ctxKey = "decision"
)

func contextWithAuth(ctx context.Context, c *jwtx.Claims, id *authz.Identity, d authz.Decision) context.Context {
	if c != nil {
		ctx = context.WithValue(ctx, CtxKeyClaims, c)
	}
	if id != nil {
		ctx = context.WithValue(ctx, CtxKeyIdentity, id)
	}
	return context.WithValue(ctx, CtxKeyDecision, d)
}

// IdentityFromContext returns the caller set by Guard. Nil for anonymous
// requests on public routes.
func IdentityFromContext(ctx context.Context) *authz.Identity {
	id, _ := ctx.Value(CtxKeyIdentity).(*authz.Identity)
	return id
}

// ClaimsFromContext returns the verified token payload set by Guard.
func ClaimsFromContext(ctx context.Context) *jwtx.Claims {
	c, _ := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c
}

// DecisionFromContext returns the decision that let the request through.
func DecisionFromContext(ctx context.Context) (authz.Decision, bool) {
	d, ok := ctx.Value(CtxKeyDecision).(authz.Decision)
	return d, ok
}
