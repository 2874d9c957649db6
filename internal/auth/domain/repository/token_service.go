package repository

import (
	"context"

	"office-dashboard/internal/auth/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and checks access tokens.
type TokenService interface {
	GenerateToken(ctx context.Context, user *model.User) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carried by an access token.
type Claims struct {
	UserID   string `json:"userID"`
	Email    string `json:"email"`
	TenantID string `json:"tenantID"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims hold one of roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
