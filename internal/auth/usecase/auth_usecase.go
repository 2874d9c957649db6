package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"office-dashboard/internal/auth/domain/model"
	"office-dashboard/internal/auth/domain/repository"
	"office-dashboard/internal/shared/database"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var tenantSlugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)
	Me(ctx context.Context) (*model.User, error)
	InviteUser(ctx context.Context, req InviteRequest) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// RegisterRequest creates an organization and its first admin.
type RegisterRequest struct {
	Organization string `json:"organization" validate:"required,notblank,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,strongpassword"`
	FirstName    string `json:"firstName" validate:"required,notblank,max=100"`
	LastName     string `json:"lastName" validate:"required,notblank,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// InviteRequest adds a user to the caller's organization.
type InviteRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strongpassword"`
	Role      string `json:"role" validate:"required,oneof=admin manager staff"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   *model.User   `json:"user"`
	Tenant *model.Tenant `json:"tenant,omitempty"`
	Token  string        `json:"token"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	repo       repository.AuthRepository
	tokenSvc   repository.TokenService
	publisher  eventbus.Publisher
	bcryptCost int
	now        func() time.Time
	logger     logger.Logger
}

var _ AuthUsecaseInterface = (*AuthUsecase)(nil)

// NewAuthUsecase creates the auth use cases. publisher may be nil.
func NewAuthUsecase(repo repository.AuthRepository, tokenSvc repository.TokenService, publisher eventbus.Publisher, log logger.Logger) *AuthUsecase {
	return &AuthUsecase{
		repo:       repo,
		tokenSvc:   tokenSvc,
		publisher:  publisher,
		bcryptCost: bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     log.WithComponent("auth"),
	}
}

// SetBcryptCost lowers hashing cost in tests.
func (uc *AuthUsecase) SetBcryptCost(cost int) {
	uc.bcryptCost = cost
}

// Register creates a new organization with req's user as its admin and
// announces the tenant on the event bus.
func (uc *AuthUsecase) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := uc.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	now := uc.now()
	tenant := &model.Tenant{
		ID:        TenantIDFor(req.Organization),
		Name:      strings.TrimSpace(req.Organization),
		CreatedAt: now,
	}
	if err := database.ValidateTenantID(tenant.ID); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := uc.repo.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, model.ErrTenantExists) {
			return nil, apperrors.NewConflictError("organization already exists").WithCause(err)
		}
		return nil, apperrors.NewInfrastructureError("failed to create organization").WithCause(err)
	}

	user, err := uc.newUser(req.Email, req.Password, tenant.ID, model.RoleAdmin, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if err := uc.createUser(ctx, user); err != nil {
		return nil, err
	}

	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, eventbus.NewEvent(eventbus.EventTypeTenantRegistered, tenant.ID, "auth")); err != nil {
			uc.logger.WithFields(map[string]interface{}{"tenant_id": tenant.ID}).Warnf("tenant provisioning failed: %v", err)
		}
	}

	token, err := uc.tokenSvc.GenerateToken(ctx, user)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token").WithCause(err)
	}
	uc.logger.WithFields(map[string]interface{}{
		"tenant_id": tenant.ID,
		"user_id":   user.ID,
	}).Info("organization registered")
	return &AuthResult{User: user, Tenant: tenant, Token: token}, nil
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords are reported the same way.
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := uc.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, apperrors.NewAuthenticationError("invalid email or password").WithCause(apperrors.ErrInvalidCredentials)
		}
		return nil, apperrors.NewInfrastructureError("failed to load user").WithCause(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.NewAuthenticationError("invalid email or password").WithCause(apperrors.ErrInvalidCredentials)
	}

	token, err := uc.tokenSvc.GenerateToken(ctx, user)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token").WithCause(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("invalid or expired token").WithCause(err)
	}
	return claims, nil
}

// Me returns the user behind the request principal.
func (uc *AuthUsecase) Me(ctx context.Context) (*model.User, error) {
	p, ok := utils.PrincipalFromContext(ctx)
	if !ok || p.System {
		return nil, apperrors.NewAuthenticationError("authentication required")
	}
	user, err := uc.repo.GetUserByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user").WithCause(apperrors.ErrUserNotFound)
		}
		return nil, apperrors.NewInfrastructureError("failed to load user").WithCause(err)
	}
	if user.TenantID != p.TenantID {
		return nil, apperrors.NewNotFoundError("user")
	}
	return user, nil
}

// InviteUser adds a user to the caller's organization. Only admins may invite.
func (uc *AuthUsecase) InviteUser(ctx context.Context, req InviteRequest) (*model.User, error) {
	p, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := uc.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	user, err := uc.newUser(req.Email, req.Password, p.TenantID, req.Role, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if err := uc.createUser(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"invited_user": user.ID,
		"role":         user.Role,
	}).Info("user invited")
	return user, nil
}

// ListUsers returns the members of the caller's organization.
func (uc *AuthUsecase) ListUsers(ctx context.Context) ([]*model.User, error) {
	p, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	users, err := uc.repo.ListUsers(ctx, p.TenantID)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to list users").WithCause(err)
	}
	return users, nil
}

func (uc *AuthUsecase) ensureEmailFree(ctx context.Context, email string) error {
	_, err := uc.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return emailTaken(email)
	case errors.Is(err, model.ErrUserNotFound):
		return nil
	default:
		return apperrors.NewInfrastructureError("failed to check email").WithCause(err)
	}
}

func (uc *AuthUsecase) newUser(email, password, tenantID, role, firstName, lastName string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, apperrors.NewValidationError(model.ErrInvalidRole.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password").WithCause(err)
	}
	now := uc.now()
	return &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		TenantID:     tenantID,
		Role:         role,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (uc *AuthUsecase) createUser(ctx context.Context, user *model.User) error {
	if err := uc.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return emailTaken(user.Email)
		}
		return apperrors.NewInfrastructureError("failed to create user").WithCause(err)
	}
	return nil
}

func requireAdmin(ctx context.Context) (utils.Principal, error) {
	p, ok := utils.PrincipalFromContext(ctx)
	if !ok {
		return p, apperrors.NewAuthenticationError("authentication required")
	}
	if p.Role != model.RoleAdmin {
		return p, apperrors.NewAuthorizationError("only admins can manage users").WithCause(apperrors.ErrForbidden)
	}
	return p, nil
}

func emailTaken(email string) error {
	return apperrors.NewConflictError("email is already registered").
		WithCause(model.ErrUserExists).
		WithDetail("fields", map[string]string{"email": fmt.Sprintf("%s is already registered", email)})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TenantIDFor derives a tenant id from an organization name: a slug of at
// most 40 characters plus a short random suffix.
func TenantIDFor(organization string) string {
	slug := strings.Trim(tenantSlugRegex.ReplaceAllString(strings.ToLower(organization), "-"), "-")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	if slug == "" {
		slug = "org"
	}
	return slug + "-" + uuid.NewString()[:8]
}
