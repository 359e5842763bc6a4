package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

type contextKey string

const (
	ctxTenantID contextKey = "tenant_id"
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
)

// TenantIDFromContext returns the authenticated tenant, if any.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxTenantID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.MemberRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.MemberRole); ok {
		return v
	}
	return ""
}

// WithPrincipal seeds ctx with an authenticated tenant actor. Used by Auth and by handler tests.
func WithPrincipal(ctx context.Context, tenantID uuid.UUID, userID string, role enums.MemberRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxTenantID, tenantID)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
