package http

import (
	"time"

	"office-dashboard/internal/auth/config"
	"office-dashboard/internal/auth/usecase"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase        usecase.AuthUsecaseInterface
	cookieName     string
	cookiePath     string
	cookieDomain   string
	cookieMaxAge   int
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite string
	logger         logger.Logger
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(uc usecase.AuthUsecaseInterface, cfg *config.Config, log logger.Logger) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		usecase:        uc,
		cookieName:     cfg.CookieName,
		cookiePath:     cfg.CookiePath,
		cookieDomain:   cfg.CookieDomain,
		cookieMaxAge:   int(cfg.AccessTokenTTL.Seconds()),
		cookieSecure:   cfg.CookieSecure,
		cookieHTTPOnly: cfg.CookieHTTPOnly,
		cookieSameSite: cfg.CookieSameSite,
		logger:         log.WithComponent("auth-http"),
	}
}

// SetupAuthRoutesWithMiddleware mounts the auth API on router
// (/api/v1/auth).
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(router fiber.Router, middleware *AuthMiddleware, attemptsPerMinute int) {
	limited := middleware.RateLimiter(attemptsPerMinute)
	router.Post("/register", limited, h.Register)
	router.Post("/login", limited, h.Login)
	router.Post("/logout", h.Logout)

	protected := router.Group("/", middleware.Protect())
	protected.Get("/me", h.GetCurrentUser)

	admin := protected.Group("/users", middleware.RequireRole("admin"))
	admin.Get("/", h.ListUsers)
	admin.Post("/", h.InviteUser)
}

// Register creates an organization and signs its admin in.
func (h *AuthHTTPHandler) Register(c *fiber.Ctx) error {
	var req usecase.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.usecase.Register(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}

	h.setCookie(c, res.Token)
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login handles user login
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.usecase.Login(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}

	h.setCookie(c, res.Token)
	return c.JSON(res)
}

// Logout clears the session cookie. Tokens are stateless and simply expire.
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns current user information
func (h *AuthHTTPHandler) GetCurrentUser(c *fiber.Ctx) error {
	user, err := h.usecase.Me(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user)
}

// ListUsers returns the members of the caller's organization.
func (h *AuthHTTPHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.usecase.ListUsers(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// InviteUser adds a member to the caller's organization.
func (h *AuthHTTPHandler) InviteUser(c *fiber.Ctx) error {
	var req usecase.InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.usecase.InviteUser(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHTTPHandler) writeError(c *fiber.Ctx, err error) error {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPCode >= fiber.StatusInternalServerError {
		h.logger.WithContext(c.UserContext()).Errorf("auth request failed: %v", err)
	}
	if apperrors.IsAuthentication(err) {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	body := fiber.Map{"error": appErr.Message}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	return c.Status(appErr.HTTPCode).JSON(body)
}

func (h *AuthHTTPHandler) setCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   h.cookieMaxAge,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(time.Duration(h.cookieMaxAge) * time.Second),
	})
}

func (h *AuthHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
