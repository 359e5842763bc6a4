package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     enums.MemberRole
	JTI      string
	// TTL overrides the configured lifetime; integration tokens minted by
	// tenantctl usually live longer than dashboard sessions.
	TTL time.Duration
}

// AccessTokenClaims represents the typed JWT issued to tenant users and integrations.
type AccessTokenClaims struct {
	TenantID uuid.UUID        `json:"tenant_id"`
	UserID   uuid.UUID        `json:"user_id"`
	Role     enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
