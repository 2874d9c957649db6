// Package auth wires organizations, users and access tokens for the
// dashboard.
package auth

import (
	"fmt"

	authhttp "office-dashboard/internal/auth/adapter/http"
	"office-dashboard/internal/auth/adapter/security"
	"office-dashboard/internal/auth/config"
	"office-dashboard/internal/auth/domain/repository"
	"office-dashboard/internal/auth/usecase"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	repository repository.AuthRepository
	tokenSvc   repository.TokenService
	usecase    *usecase.AuthUsecase
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	config     *config.Config
}

// NewAuthModule builds the module over repo. Registered organizations are
// announced on publisher.
func NewAuthModule(repo repository.AuthRepository, cfg *config.Config, publisher eventbus.Publisher, log logger.Logger) (*AuthModule, error) {
	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	authUsecase := usecase.NewAuthUsecase(repo, tokenSvc, publisher, log)
	return &AuthModule{
		repository: repo,
		tokenSvc:   tokenSvc,
		usecase:    authUsecase,
		handler:    authhttp.NewAuthHTTPHandler(authUsecase, cfg, log),
		middleware: authhttp.NewAuthMiddleware(authUsecase, cfg.CookieName),
		config:     cfg,
	}, nil
}

// RegisterRoutes registers authentication routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.SetupAuthRoutesWithMiddleware(router, am.middleware, am.config.LoginAttemptsPerMinute)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() *usecase.AuthUsecase {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}
