package http

import (
	"encoding/json"
	"strings"

	"office-dashboard/internal/dashboard/usecase"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// EntityHandler serves the generic CRUD API over the entity catalog.
type EntityHandler struct {
	docs usecase.DocumentUsecase
	log  logger.Logger
}

func NewEntityHandler(docs usecase.DocumentUsecase, log logger.Logger) *EntityHandler {
	return &EntityHandler{docs: docs, log: log.WithComponent("entities-http")}
}

// RegisterRoutes mounts /entities on an authenticated router.
func (h *EntityHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/entities")
	g.Get("/", h.ListKinds)
	g.Get("/:kind", h.List)
	g.Post("/:kind", h.Create)
	g.Get("/:kind/:id", h.Get)
	g.Patch("/:kind/:id", h.Update)
	g.Delete("/:kind/:id", h.Delete)
}

// ListKinds returns the catalog so clients can build forms and tables.
func (h *EntityHandler) ListKinds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"kinds": h.docs.Catalog().Kinds()})
}

// List handles GET /entities/:kind?where=field:op:value&orderBy=&direction=&limit=&offset=&search=&expand=true
func (h *EntityHandler) List(c *fiber.Ctx) error {
	q, err := usecase.ParseQueryParams(func(k string) string { return c.Query(k) }, queryValues(c, "where"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.docs.List(c.UserContext(), c.Params("kind"), q, c.QueryBool("expand"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

func (h *EntityHandler) Get(c *fiber.Ctx) error {
	doc, err := h.docs.Get(c.UserContext(), c.Params("kind"), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(doc)
}

func (h *EntityHandler) Create(c *fiber.Ctx) error {
	input, err := bodyMap(c)
	if err != nil {
		return badBody(c, h.log)
	}
	res, err := h.docs.Create(c.UserContext(), c.Params("kind"), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *EntityHandler) Update(c *fiber.Ctx) error {
	input, err := bodyMap(c)
	if err != nil {
		return badBody(c, h.log)
	}
	res, err := h.docs.Update(c.UserContext(), c.Params("kind"), c.Params("id"), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

func (h *EntityHandler) Delete(c *fiber.Ctx) error {
	res, err := h.docs.Delete(c.UserContext(), c.Params("kind"), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// bodyMap decodes a JSON object or an urlencoded form into a field map.
// Form values stay strings; the catalog coerces them per field type.
func bodyMap(c *fiber.Ctx) (map[string]interface{}, error) {
	input := map[string]interface{}{}
	if len(c.Body()) == 0 {
		return input, nil
	}
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationForm) {
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			input[string(k)] = string(v)
		})
		return input, nil
	}
	if err := json.Unmarshal(c.Body(), &input); err != nil {
		return nil, err
	}
	return input, nil
}

// queryValues returns every value of a repeated query parameter.
func queryValues(c *fiber.Ctx, key string) []string {
	raw := c.Context().QueryArgs().PeekMulti(key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, string(v))
	}
	return out
}
