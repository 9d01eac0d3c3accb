package utils

import (
	"context"

	"github.com/mmdatafocus/billing_backend/appctx"
)

var (
	ContextKeyToken           = appctx.ContextKeyToken
	ContextKeyTenantId        = appctx.ContextKeyTenantId
	ContextKeyUserId          = appctx.ContextKeyUserId
	ContextKeyCorrelationId   = appctx.ContextKeyCorrelationId
	ContextKeySkipTenantScope = appctx.ContextKeySkipTenantScope
)

func GetTenantIdFromContext(ctx context.Context) (string, bool) {
	v, ok := appctx.GetString(ctx, ContextKeyTenantId)
	return v, ok && v != ""
}

func GetUserIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetTenantIdInContext(ctx context.Context, tenantId string) context.Context {
	return appctx.Set(ctx, ContextKeyTenantId, tenantId)
}

func SetUserIdInContext(ctx context.Context, userId string) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipTenantScope, skip)
}

// RequireTenant returns the tenant id or the "not onboarded" validation error.
func RequireTenant(ctx context.Context) (string, error) {
	tenantId, ok := GetTenantIdFromContext(ctx)
	if !ok {
		return "", ErrNotOnboarded
	}
	return tenantId, nil
}
