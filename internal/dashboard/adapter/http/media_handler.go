package http

import (
	"office-dashboard/internal/dashboard/usecase"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// MediaHandler uploads files to object storage and hands out signed URLs.
type MediaHandler struct {
	media usecase.MediaUsecase
	log   logger.Logger
}

func NewMediaHandler(media usecase.MediaUsecase, log logger.Logger) *MediaHandler {
	return &MediaHandler{media: media, log: log.WithComponent("media-http")}
}

func (h *MediaHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/media")
	g.Post("/", h.Upload)
	g.Get("/:id/url", h.URL)
	g.Delete("/:id", h.Delete)
}

// Upload handles a multipart form with the file under "file".
func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		verrs := apperrors.NewValidationErrors().Add("file", "a file is required", nil)
		return writeError(c, h.log, verrs.ToAppError())
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, h.log, apperrors.NewInternalError("failed to read upload").WithCause(err))
	}
	defer f.Close()

	res, err := h.media.Upload(c.UserContext(), usecase.MediaUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *MediaHandler) URL(c *fiber.Ctx) error {
	url, err := h.media.URL(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (h *MediaHandler) Delete(c *fiber.Ctx) error {
	res, err := h.media.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}
