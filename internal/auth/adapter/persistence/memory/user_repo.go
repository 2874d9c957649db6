package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"office-dashboard/internal/auth/domain/model"
	"office-dashboard/internal/auth/domain/repository"
)

// AuthRepository keeps users and organizations in process memory. It
// backs STORE=memory deployments and tests.
type AuthRepository struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string
	tenants map[string]*model.Tenant
}

var _ repository.AuthRepository = (*AuthRepository)(nil)

func NewAuthRepository() *AuthRepository {
	return &AuthRepository{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		tenants: make(map[string]*model.Tenant),
	}
}

func (r *AuthRepository) CreateTenant(_ context.Context, tenant *model.Tenant) error {
	if tenant == nil {
		return errors.New("tenant cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.ID]; ok {
		return model.ErrTenantExists
	}
	t := *tenant
	r.tenants[t.ID] = &t
	return nil
}

func (r *AuthRepository) GetTenant(_ context.Context, id string) (*model.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, model.ErrTenantNotFound
	}
	out := *t
	return &out, nil
}

func (r *AuthRepository) CreateUser(_ context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return model.ErrUserExists
	}
	if _, ok := r.users[user.ID]; ok {
		return model.ErrUserExists
	}
	u := *user
	r.users[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *AuthRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *r.users[id]
	return &u, nil
}

func (r *AuthRepository) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("user id cannot be empty")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *AuthRepository) ListUsers(_ context.Context, tenantID string) ([]*model.User, error) {
	r.mu.RLock()
	users := make([]*model.User, 0)
	for _, u := range r.users {
		if u.TenantID == tenantID {
			c := *u
			users = append(users, &c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}
