package appctx

import "context"

// ContextKey namespaces request-scoped values. It lives in its own package so
// config, utils and middlewares can share keys without importing each other.
type ContextKey string

func (c ContextKey) String() string { return "billing." + string(c) }

const (
	ContextKeyToken         ContextKey = "token"
	ContextKeyTenantId      ContextKey = "tenant_id"
	ContextKeyUserId        ContextKey = "user_id"
	ContextKeyCorrelationId ContextKey = "correlation_id"

	// ContextKeySkipTenantScope turns the gorm tenant guard off. Operator tooling only.
	ContextKeySkipTenantScope ContextKey = "skip_tenant_scope"
)

// Get returns the value under key when it is a T.
func Get[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	return Get[string](ctx, key)
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	return Get[bool](ctx, key)
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
