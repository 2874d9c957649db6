package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	authhttp "office-dashboard/internal/auth/adapter/http"
	"office-dashboard/internal/auth/domain/repository"
	"office-dashboard/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareTestSuite struct {
	suite.Suite
	app        *fiber.App
	mockUC     *mockAuthUsecase
	middleware *authhttp.AuthMiddleware
}

func (s *MiddlewareTestSuite) SetupTest() {
	s.mockUC = &mockAuthUsecase{}
	s.middleware = authhttp.NewAuthMiddleware(s.mockUC, "office_token")
	s.app = fiber.New()
}

func (s *MiddlewareTestSuite) mountWhoAmI() {
	s.app.Get("/protected", s.middleware.Protect(), func(c *fiber.Ctx) error {
		p, ok := utils.PrincipalFromContext(c.UserContext())
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		local, _ := c.Locals(utils.PrincipalLocalsKey).(utils.Principal)
		return c.JSON(fiber.Map{"tenant": p.TenantID, "role": p.Role, "user": local.UserID})
	})
}

func staffClaims() *repository.Claims {
	return &repository.Claims{UserID: "user-123", Email: "sam@acme.test", TenantID: "acme", Role: "staff"}
}

func (s *MiddlewareTestSuite) TestProtect_TokenSources() {
	s.mountWhoAmI()
	s.mockUC.On("ValidateToken", mock.Anything, "valid-token").Return(staffClaims(), nil)

	testCases := []struct {
		name  string
		setup func(r *http.Request)
		url   string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer valid-token") }, "/protected"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "office_token", Value: "valid-token"}) }, "/protected"},
		{"query", func(*http.Request) {}, "/protected?token=valid-token"},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			tc.setup(req)
			resp, err := s.app.Test(req)
			require.NoError(s.T(), err)
			require.Equal(s.T(), http.StatusOK, resp.StatusCode)

			var body map[string]string
			require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(s.T(), "acme", body["tenant"])
			assert.Equal(s.T(), "staff", body["role"])
			assert.Equal(s.T(), "user-123", body["user"])
		})
	}
}

func (s *MiddlewareTestSuite) TestProtect_NoToken() {
	s.mountWhoAmI()

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(s.T(), "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
	s.mockUC.AssertNotCalled(s.T(), "ValidateToken")
}

func (s *MiddlewareTestSuite) TestProtect_InvalidToken() {
	s.mountWhoAmI()
	s.mockUC.On("ValidateToken", mock.Anything, "bad").Return(nil, errors.New("expired"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad")
	resp, err := s.app.Test(req)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(s.T(), `Bearer error="invalid_token"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))
}

func (s *MiddlewareTestSuite) TestRequireRole() {
	s.app.Get("/admin", s.middleware.Protect(), s.middleware.RequireRole("admin", "manager"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	s.mockUC.On("ValidateToken", mock.Anything, "staff").Return(staffClaims(), nil)
	manager := staffClaims()
	manager.Role = "manager"
	s.mockUC.On("ValidateToken", mock.Anything, "manager").Return(manager, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer staff")
	resp, err := s.app.Test(req)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer manager")
	resp, err = s.app.Test(req)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
}

func (s *MiddlewareTestSuite) TestRequireRole_WithoutProtect() {
	s.app.Get("/admin", s.middleware.RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (s *MiddlewareTestSuite) TestSecurityHeadersAndRequestID() {
	s.app.Use(s.middleware.RequestID(), s.middleware.SecurityHeaders())
	s.app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(s.T(), "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(s.T(), resp.Header.Get("X-Request-ID"))
}

func (s *MiddlewareTestSuite) TestRateLimiter() {
	s.app.Post("/login", s.middleware.RateLimiter(2), func(c *fiber.Ctx) error { return c.SendString("ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(s.T(), err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(s.T(), []int{200, 200, 429}, codes)
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
