package testutil

import (
	"context"
	"testing"
	"time"

	"office-dashboard/internal/auth/domain/model"
	"office-dashboard/internal/auth/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// StrongPassword satisfies the registration password rules.
const StrongPassword = "Str0ng!Pass"

// UserFixture provides test users.
type UserFixture struct {
	Now time.Time
}

func NewUserFixture() *UserFixture {
	return &UserFixture{Now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// User returns a user of tenantID with role and StrongPassword hashed at
// the minimum bcrypt cost.
func (f *UserFixture) User(id, email, tenantID, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(StrongPassword), bcrypt.MinCost)
	return &model.User{
		ID:           id,
		Email:        email,
		TenantID:     tenantID,
		Role:         role,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		CreatedAt:    f.Now,
		UpdatedAt:    f.Now,
	}
}

func (f *UserFixture) Admin(tenantID string) *model.User {
	return f.User("admin-"+tenantID, "admin@"+tenantID+".test", tenantID, model.RoleAdmin)
}

func (f *UserFixture) Tenant(id string) *model.Tenant {
	return &model.Tenant{ID: id, Name: "Org " + id, CreatedAt: f.Now}
}

// RunAuthRepositoryContract checks behavior every AuthRepository must share.
func RunAuthRepositoryContract(t *testing.T, repo repository.AuthRepository, tenantA, tenantB string) {
	ctx := context.Background()
	f := NewUserFixture()

	require.NoError(t, repo.CreateTenant(ctx, f.Tenant(tenantA)))
	assert.ErrorIs(t, repo.CreateTenant(ctx, f.Tenant(tenantA)), model.ErrTenantExists)
	got, err := repo.GetTenant(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, "Org "+tenantA, got.Name)
	_, err = repo.GetTenant(ctx, tenantB+"-missing")
	assert.ErrorIs(t, err, model.ErrTenantNotFound)

	admin := f.Admin(tenantA)
	staff := f.User("staff-"+tenantA, "staff@"+tenantA+".test", tenantA, model.RoleStaff)
	staff.CreatedAt = f.Now.Add(time.Minute)
	other := f.Admin(tenantB)
	for _, u := range []*model.User{admin, staff, other} {
		require.NoError(t, repo.CreateUser(ctx, u))
	}

	dup := f.User("dup-"+tenantB, admin.Email, tenantB, model.RoleStaff)
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), model.ErrUserExists)

	byEmail, err := repo.GetUserByEmail(ctx, admin.Email)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, byEmail.ID)
	assert.Equal(t, model.RoleAdmin, byEmail.Role)
	assert.Equal(t, admin.PasswordHash, byEmail.PasswordHash)

	byID, err := repo.GetUserByID(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, staff.Email, byID.Email)

	_, err = repo.GetUserByEmail(ctx, "nobody@"+tenantA+".test")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	_, err = repo.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	users, err := repo.ListUsers(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, admin.ID, users[0].ID)
	assert.Equal(t, staff.ID, users[1].ID)
}
