package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "office-dashboard/internal/auth/adapter/http"
	"office-dashboard/internal/auth/adapter/persistence/memory"
	"office-dashboard/internal/auth/adapter/security"
	"office-dashboard/internal/auth/config"
	"office-dashboard/internal/auth/testutil"
	"office-dashboard/internal/auth/usecase"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		JWTSecretKey:   "router-test-secret",
		JWTIssuer:      "office-dashboard",
		AccessTokenTTL: time.Hour,
		CookieName:     "office_token",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: "lax",
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

type AuthRouterTestSuite struct {
	suite.Suite
	app *fiber.App
}

func (s *AuthRouterTestSuite) SetupTest() {
	cfg := testConfig()
	tokens, err := security.NewJWTokenService(cfg)
	require.NoError(s.T(), err)
	uc := usecase.NewAuthUsecase(memory.NewAuthRepository(), tokens, nil, logger.Nop())
	uc.SetBcryptCost(bcrypt.MinCost)

	s.app = fiber.New()
	mw := authhttp.NewAuthMiddleware(uc, cfg.CookieName)
	authhttp.NewAuthHTTPHandler(uc, cfg, logger.Nop()).
		SetupAuthRoutesWithMiddleware(s.app.Group("/api/v1/auth"), mw, 100)
}

func (s *AuthRouterTestSuite) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(s.T(), err)

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(s.T(), json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (s *AuthRouterTestSuite) registerAdmin() string {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organization": "Acme",
		"email":        "ada@acme.test",
		"password":     testutil.StrongPassword,
		"firstName":    "Ada",
		"lastName":     "Admin",
	})
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, body)
	return body["token"].(string)
}

func (s *AuthRouterTestSuite) TestRegisterLoginMe() {
	token := s.registerAdmin()

	resp, body := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@acme.test", "password": testutil.StrongPassword,
	})
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.NotEmpty(s.T(), body["token"])
	cookie := resp.Header.Get("Set-Cookie")
	assert.Contains(s.T(), cookie, "office_token=")
	assert.Contains(s.T(), cookie, "HttpOnly")

	resp, body = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(s.T(), "ada@acme.test", body["email"])
	assert.Equal(s.T(), "admin", body["role"])
	assert.NotContains(s.T(), body, "passwordHash")

	resp, _ = s.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (s *AuthRouterTestSuite) TestRegister_ValidationAndConflict() {
	resp, body := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organization": "Acme", "email": "bad", "password": "weak",
	})
	require.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
	fields := body["details"].(map[string]interface{})["fields"].(map[string]interface{})
	assert.Contains(s.T(), fields, "email")
	assert.Contains(s.T(), fields, "password")
	assert.Contains(s.T(), fields, "firstName")

	s.registerAdmin()
	resp, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"organization": "Other", "email": "ada@acme.test", "password": testutil.StrongPassword,
		"firstName": "A", "lastName": "B",
	})
	assert.Equal(s.T(), http.StatusConflict, resp.StatusCode)
}

func (s *AuthRouterTestSuite) TestLogin_WrongPassword() {
	s.registerAdmin()
	resp, body := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@acme.test", "password": "Wrong!Pass9",
	})
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(s.T(), "invalid email or password", body["error"])
	assert.Equal(s.T(), "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
}

func (s *AuthRouterTestSuite) TestUsers_AdminOnly() {
	admin := s.registerAdmin()

	resp, body := s.do(http.MethodPost, "/api/v1/auth/users", admin, map[string]string{
		"email": "sam@acme.test", "password": testutil.StrongPassword, "role": "staff",
	})
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, body)
	assert.Equal(s.T(), "staff", body["role"])

	resp, body = s.do(http.MethodGet, "/api/v1/auth/users", admin, nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Len(s.T(), body["users"], 2)

	_, login := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "sam@acme.test", "password": testutil.StrongPassword,
	})
	staff := login["token"].(string)

	resp, _ = s.do(http.MethodGet, "/api/v1/auth/users", staff, nil)
	assert.Equal(s.T(), http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/api/v1/auth/users", staff, map[string]string{
		"email": "eve@acme.test", "password": testutil.StrongPassword, "role": "admin",
	})
	assert.Equal(s.T(), http.StatusForbidden, resp.StatusCode)
}

func (s *AuthRouterTestSuite) TestLogout_ClearsCookie() {
	resp, _ := s.do(http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(s.T(), resp.Header.Get("Set-Cookie"), "office_token=;")
}

func TestAuthRouterTestSuite(t *testing.T) {
	suite.Run(t, new(AuthRouterTestSuite))
}

func TestAuthHandler_InternalErrorHidesCause(t *testing.T) {
	uc := &mockAuthUsecase{}
	uc.On("Login", mock.Anything, mock.Anything).Return(nil, errors.New("mongo: connection refused"))

	app := fiber.New()
	h := authhttp.NewAuthHTTPHandler(uc, testConfig(), logger.Nop())
	app.Post("/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"email":"a@b.co","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Empty(t, resp.Header.Get(fiber.HeaderWWWAuthenticate))

	raw, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "mongo")
	uc.AssertExpectations(t)
}

func TestAuthHandler_BadBody(t *testing.T) {
	app := fiber.New()
	h := authhttp.NewAuthHTTPHandler(&mockAuthUsecase{}, testConfig(), logger.Nop())
	app.Post("/register", h.Register)

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
