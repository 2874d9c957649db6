package di

import (
	"context"
	"errors"
	"time"

	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// HTTPOptions configures the fiber application.
type HTTPOptions struct {
	AllowOrigins string
	// BodyLimit defaults to the media upload limit plus 1 MiB of form overhead.
	BodyLimit int
}

// NewHTTPApp builds the fiber application serving both modules. The auth
// and dashboard modules must be initialized.
func (c *Container) NewHTTPApp(opts HTTPOptions) (*fiber.App, error) {
	c.mu.RLock()
	authModule, dashModule := c.AuthModule, c.DashboardModule
	c.mu.RUnlock()
	if authModule == nil || dashModule == nil {
		return nil, errors.New("auth and dashboard modules must be initialized before the HTTP app")
	}
	if opts.AllowOrigins == "" {
		opts.AllowOrigins = "*"
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = int(dashModule.Config.Media.MaxUploadBytes()) + 1<<20
	}

	log := c.Logger
	app := fiber.New(fiber.Config{
		AppName:               "Office Dashboard API v1",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return ctx.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			appErr := apperrors.AsAppError(err)
			if appErr.HTTPCode >= fiber.StatusInternalServerError {
				log.WithContext(ctx.UserContext()).Errorf("unhandled error on %s %s: %v", ctx.Method(), ctx.Path(), err)
			}
			return ctx.Status(appErr.HTTPCode).JSON(fiber.Map{"error": appErr.Message})
		},
	})

	middleware := authModule.GetMiddleware()
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.CORS(opts.AllowOrigins))
	app.Use(middleware.SecurityHeaders())
	app.Use(metrics.Middleware())

	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(ctx *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(ctx.Context(), 5*time.Second)
		defer cancel()

		status, code := "HEALTHY", fiber.StatusOK
		checks := fiber.Map{}
		for name, err := range c.HealthCheck(healthCtx) {
			if err != nil {
				status, code = "UNHEALTHY", fiber.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}
		return ctx.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"store":     dashModule.Config.Store.Backend,
			"checks":    checks,
		})
	})

	// Auth routes go first: the dashboard protects everything else under /api/v1.
	authModule.RegisterRoutes(app.Group("/api/v1/auth"))
	dashModule.RegisterRoutes(app, middleware.Protect())
	return app, nil
}
