package http

import (
	"encoding/json"
	"fmt"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/usecase"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// PageHandler serves published pages, their response collector and the
// staff-only preview and response export.
type PageHandler struct {
	pages              usecase.PageUsecase
	responsesPerMinute int
	log                logger.Logger
}

func NewPageHandler(pages usecase.PageUsecase, responsesPerMinute int, log logger.Logger) *PageHandler {
	if responsesPerMinute <= 0 {
		responsesPerMinute = 10
	}
	return &PageHandler{pages: pages, responsesPerMinute: responsesPerMinute, log: log.WithComponent("pages-http")}
}

// RegisterPublicRoutes mounts /p/:tenant/:slug on an unauthenticated router.
func (h *PageHandler) RegisterPublicRoutes(router fiber.Router) {
	g := router.Group("/p/:tenant/:slug")
	g.Get("/", h.Render)
	g.Get("/layout", h.Layout)
	g.Post("/responses", h.responseLimiter(), h.Collect)
}

// RegisterRoutes mounts the staff endpoints on an authenticated router.
func (h *PageHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/pages/:kind/:id")
	g.Get("/preview", h.Preview)
	g.Get("/responses", h.Responses)
	g.Get("/responses.csv", h.ResponsesCSV)
}

func (h *PageHandler) responseLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               h.responsesPerMinute,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get(fiber.HeaderXForwardedFor, c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return writeError(c, h.log, apperrors.NewRateLimitError("Too many submissions, please try again shortly"))
		},
	})
}

// Render serves the published page as HTML.
func (h *PageHandler) Render(c *fiber.Ctx) error {
	html, err := h.pages.RenderPublic(c.UserContext(), c.Params("tenant"), c.Params("slug"))
	if err != nil {
		appErr := apperrors.AsAppError(err)
		if appErr.HTTPCode >= fiber.StatusInternalServerError {
			h.log.WithContext(c.UserContext()).Errorf("render page %s/%s: %v", c.Params("tenant"), c.Params("slug"), err)
		}
		return c.Status(appErr.HTTPCode).Type("txt").SendString(appErr.Message)
	}
	c.Type("html", "utf-8")
	return c.Send(html)
}

func (h *PageHandler) Layout(c *fiber.Ctx) error {
	layout, err := h.pages.Layout(c.UserContext(), c.Params("tenant"), c.Params("slug"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(layout)
}

// Collect stores a questionnaire or contact submission. Only the notice is
// returned to the visitor.
func (h *PageHandler) Collect(c *fiber.Ctx) error {
	var sub model.ResponseSubmission
	if err := json.Unmarshal(c.Body(), &sub); err != nil {
		return badBody(c, h.log)
	}
	res, err := h.pages.CollectResponse(c.UserContext(), c.Params("tenant"), c.Params("slug"), sub)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"notice": res.Notice})
}

func (h *PageHandler) Preview(c *fiber.Ctx) error {
	html, err := h.pages.Preview(c.UserContext(), c.Params("kind"), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Type("html", "utf-8")
	return c.Send(html)
}

func (h *PageHandler) Responses(c *fiber.Ctx) error {
	docs, err := h.pages.Responses(c.UserContext(), c.Params("kind"), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"responses": docs})
}

func (h *PageHandler) ResponsesCSV(c *fiber.Ctx) error {
	data, err := h.pages.ResponsesCSV(c.UserContext(), c.Params("kind"), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", c.Params("id")+"-responses.csv"))
	return c.Send(data)
}
