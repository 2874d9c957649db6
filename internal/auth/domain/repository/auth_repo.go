package repository

import (
	"context"

	"office-dashboard/internal/auth/domain/model"
)

// AuthRepository stores users and organizations. Emails are unique across
// organizations so login needs only email and password.
type AuthRepository interface {
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)

	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, tenantID string) ([]*model.User, error)
}
