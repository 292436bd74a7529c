package auth

import "context"

// AuthInfo is what a verified token says about the caller. TokenID is the
// ledger record id and is only set for refresh-authenticated requests.
type AuthInfo struct {
	Subject uint
	Role    string
	TokenID uint
}

type ctxKey struct{}

func IntoContext(ctx context.Context, info AuthInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

func FromContext(ctx context.Context) (AuthInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(AuthInfo)
	return info, ok
}
