package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrorType classifies an AppError.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeAuthorization  ErrorType = "AUTHORIZATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict       ErrorType = "CONFLICT_ERROR"
	ErrorTypeRateLimit      ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnknownKind      = errors.New("unknown entity kind")
	ErrReadOnlyKind     = errors.New("entity kind is read-only")
	ErrAccessDenied     = errors.New("access rule denied the operation")
	ErrPageNotFound     = errors.New("page not found")
)

// AppError carries an error type, an HTTP status and optional details.
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message, http.StatusInternalServerError)
}

func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

func NewAuthorizationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthorization, message, http.StatusForbidden)
}

// NewNotFoundError creates a "<resource> not found" error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict)
}

func NewRateLimitError(message string) *AppError {
	return NewAppError(ErrorTypeRateLimit, message, http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// ValidationError is a single failed field, keyed by its JSON name.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors collects field errors for a form submission.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]ValidationError, 0)}
}

// Add records a field error. Only the first message per field is kept.
func (ve *ValidationErrors) Add(field, message string, value interface{}) *ValidationErrors {
	for _, e := range ve.Errors {
		if e.Field == field {
			return ve
		}
	}
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message, Value: value})
	return ve
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Fields returns field -> message, the shape form clients bind to.
func (ve *ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(ve.Errors))
	for _, e := range ve.Errors {
		out[e.Field] = e.Message
	}
	return out
}

// Sort orders errors by field name so responses are stable.
func (ve *ValidationErrors) Sort() {
	sort.SliceStable(ve.Errors, func(i, j int) bool { return ve.Errors[i].Field < ve.Errors[j].Field })
}

// ToAppError converts validation errors to an AppError, or nil when empty.
func (ve *ValidationErrors) ToAppError() *AppError {
	if !ve.HasErrors() {
		return nil
	}
	appErr := NewValidationError("validation failed")
	appErr.Details["fields"] = ve.Fields()
	return appErr
}

// AsAppError maps any error onto an AppError, translating the sentinels above.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		if a := ve.ToAppError(); a != nil {
			return a
		}
	}
	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrPageNotFound):
		return NewAppError(ErrorTypeNotFound, err.Error(), http.StatusNotFound).WithCause(err)
	case errors.Is(err, ErrUnknownKind):
		return NewAppError(ErrorTypeNotFound, err.Error(), http.StatusNotFound).WithCause(err)
	case errors.Is(err, ErrReadOnlyKind), errors.Is(err, ErrAccessDenied), errors.Is(err, ErrForbidden):
		return NewAuthorizationError(err.Error()).WithCause(err)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrInvalidCredentials):
		return NewAuthenticationError(err.Error()).WithCause(err)
	case errors.Is(err, ErrInvalidInput):
		return NewValidationError(err.Error()).WithCause(err)
	case errors.Is(err, ErrConflict):
		return NewConflictError(err.Error()).WithCause(err)
	}
	return NewInternalError("internal error").WithCause(err)
}

// CallableStatus maps an error type onto the status strings used by the
// callable functions endpoint.
func CallableStatus(t ErrorType) string {
	switch t {
	case ErrorTypeValidation:
		return "INVALID_ARGUMENT"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeAuthorization:
		return "PERMISSION_DENIED"
	case ErrorTypeAuthentication:
		return "UNAUTHENTICATED"
	case ErrorTypeConflict:
		return "ALREADY_EXISTS"
	case ErrorTypeRateLimit:
		return "RESOURCE_EXHAUSTED"
	default:
		return "INTERNAL"
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeNotFound
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDocumentNotFound) || errors.Is(err, ErrUserNotFound)
}

func IsAuthentication(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeAuthentication
	}
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired)
}
