package http_test

import (
	"context"

	"office-dashboard/internal/auth/domain/model"
	"office-dashboard/internal/auth/domain/repository"
	"office-dashboard/internal/auth/usecase"

	"github.com/stretchr/testify/mock"
)

// mockAuthUsecase is a shared mock type for the AuthUsecaseInterface
type mockAuthUsecase struct {
	mock.Mock
}

var _ usecase.AuthUsecaseInterface = (*mockAuthUsecase)(nil)

func (m *mockAuthUsecase) Register(ctx context.Context, req usecase.RegisterRequest) (*usecase.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AuthResult), args.Error(1)
}

func (m *mockAuthUsecase) Login(ctx context.Context, req usecase.LoginRequest) (*usecase.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AuthResult), args.Error(1)
}

func (m *mockAuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Claims), args.Error(1)
}

func (m *mockAuthUsecase) Me(ctx context.Context) (*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthUsecase) InviteUser(ctx context.Context, req usecase.InviteRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthUsecase) ListUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}
