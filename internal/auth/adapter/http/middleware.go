package http

import (
	"strings"
	"time"

	"office-dashboard/internal/auth/usecase"
	"office-dashboard/internal/shared/contextkeys"
	"office-dashboard/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase    usecase.AuthUsecaseInterface
	cookieName string
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		usecase:    uc,
		cookieName: cookieName,
	}
}

// CORS allows the dashboard front-ends listed in allowOrigins.
func (m *AuthMiddleware) CORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID",
		AllowCredentials: allowOrigins != "*",
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RateLimiter limits login and registration attempts per client IP.
func (m *AuthMiddleware) RateLimiter(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               perMinute,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestID assigns X-Request-ID; Protect copies it into the user context.
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// Protect requires a valid token and puts the caller's principal on the
// request context.
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := m.extractToken(c)
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		claims, err := m.usecase.ValidateToken(c.UserContext(), token)
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		p := utils.Principal{
			UserID:   claims.UserID,
			Email:    claims.Email,
			TenantID: claims.TenantID,
			Role:     claims.Role,
		}
		ctx := utils.WithPrincipal(c.UserContext(), p)
		if rid, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok && rid != "" {
			ctx = utils.WithRequestID(ctx, rid)
		}
		c.SetUserContext(ctx)
		c.Locals(utils.PrincipalLocalsKey, p)
		return c.Next()
	}
}

// RequireRole allows only principals holding one of roles. It must run
// after Protect.
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := utils.PrincipalFromContext(c.UserContext())
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// extractToken reads the bearer header, then the cookie, then the token
// query parameter used by websocket clients.
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, bool) {
	if authHeader := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token, true
		}
	}
	if token := c.Cookies(m.cookieName); token != "" {
		return token, true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
