package http

import (
	"encoding/json"

	"office-dashboard/internal/dashboard/usecase"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// FunctionHandler exposes the callable mutation functions.
type FunctionHandler struct {
	functions usecase.FunctionUsecase
	log       logger.Logger
}

func NewFunctionHandler(functions usecase.FunctionUsecase, log logger.Logger) *FunctionHandler {
	return &FunctionHandler{functions: functions, log: log.WithComponent("functions-http")}
}

type callRequest struct {
	Data map[string]interface{} `json:"data"`
}

// CallError is the error envelope of a failed call.
type CallError struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (h *FunctionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/functions", h.List)
	router.Post("/functions/:name", h.Call)
}

func (h *FunctionHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"functions": h.functions.Names()})
}

// Call handles POST /functions/:name with body {"data": {...}}.
func (h *FunctionHandler) Call(c *fiber.Ctx) error {
	var req callRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return h.fail(c, apperrors.NewValidationError("body must be {\"data\": {...}}"))
		}
	}
	if req.Data == nil {
		req.Data = map[string]interface{}{}
	}

	result, err := h.functions.Call(c.UserContext(), c.Params("name"), req.Data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"result": result})
}

func (h *FunctionHandler) fail(c *fiber.Ctx, err error) error {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPCode >= fiber.StatusInternalServerError {
		h.log.WithContext(c.UserContext()).Errorf("function %s failed: %v", c.Params("name"), err)
	}
	return c.Status(appErr.HTTPCode).JSON(fiber.Map{"error": CallError{
		Status:  apperrors.CallableStatus(appErr.Type),
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}
