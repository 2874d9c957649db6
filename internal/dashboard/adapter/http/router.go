package http

import (
	"github.com/gofiber/fiber/v2"
)

// Handlers groups the dashboard's HTTP handlers.
type Handlers struct {
	Entities  *EntityHandler
	Functions *FunctionHandler
	Pages     *PageHandler
	Media     *MediaHandler
	Live      *WebSocketHandler
}

// RegisterRoutes mounts the dashboard API. protect authenticates requests
// and puts the principal on the request context.
//
//	/api/v1/entities, /api/v1/functions, /api/v1/pages, /api/v1/media  (protected)
//	/p/:tenant/:slug[/layout|/responses]                                (public)
//	websocket path from RealtimeConfig                                   (protected)
func (h *Handlers) RegisterRoutes(app fiber.Router, protect fiber.Handler) {
	h.Pages.RegisterPublicRoutes(app)
	h.Live.RegisterRoutes(app, protect)

	api := app.Group("/api/v1", protect)
	h.Entities.RegisterRoutes(api)
	h.Functions.RegisterRoutes(api)
	h.Pages.RegisterRoutes(api)
	h.Media.RegisterRoutes(api)
}
