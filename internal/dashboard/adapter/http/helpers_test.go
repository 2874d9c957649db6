package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dashhttp "office-dashboard/internal/dashboard/adapter/http"
	"office-dashboard/internal/dashboard/adapter/persistence/memory"
	"office-dashboard/internal/dashboard/adapter/storage"
	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/config"
	"office-dashboard/internal/dashboard/render"
	"office-dashboard/internal/dashboard/testutil"
	"office-dashboard/internal/dashboard/usecase"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app     *fiber.App
	docs    *usecase.DocumentService
	objects *storage.MemoryStorage
	cfg     *config.DashboardConfig
	fixture *testutil.DocumentFixture
}

// fakeProtect accepts "Bearer <tenant>:<role>" or ?token=<tenant>:<role>.
func fakeProtect(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}
	p := utils.Principal{
		UserID:   "user-" + parts[1],
		Email:    parts[1] + "@" + parts[0] + ".test",
		TenantID: parts[0],
		Role:     parts[1],
	}
	c.SetUserContext(utils.WithPrincipal(c.UserContext(), p))
	c.Locals(utils.PrincipalLocalsKey, p)
	return c.Next()
}

func newTestServer(t *testing.T, tweak func(*config.DashboardConfig)) *testServer {
	t.Helper()
	cfg := config.DefaultDashboardConfig()
	if tweak != nil {
		tweak(cfg)
	}

	bus := eventbus.NewEventBus(logger.Nop())
	docs := usecase.NewDocumentService(catalog.MustDefault(), memory.NewDocumentRepository(), bus, logger.Nop())
	realtime := usecase.NewRealtimeService(docs, nil, logger.Nop())
	realtime.Register(bus)
	renderer, err := render.NewRenderer()
	require.NoError(t, err)
	pages := usecase.NewPageService(docs, renderer, nil, nil, cfg.Pages.CacheTTL, logger.Nop())
	objects := storage.NewMemoryStorage("http://media.test")
	media := usecase.NewMediaService(docs, objects, cfg.Media.MaxUploadBytes(), cfg.Media.URLExpiry, logger.Nop())

	handlers := &dashhttp.Handlers{
		Entities:  dashhttp.NewEntityHandler(docs, logger.Nop()),
		Functions: dashhttp.NewFunctionHandler(usecase.NewFunctionRegistry(docs), logger.Nop()),
		Pages:     dashhttp.NewPageHandler(pages, cfg.Pages.ResponsesPerMinute, logger.Nop()),
		Media:     dashhttp.NewMediaHandler(media, logger.Nop()),
		Live:      dashhttp.NewWebSocketHandler(realtime, cfg.Realtime, logger.Nop()),
	}
	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Media.MaxUploadBytes()) + 1<<20})
	handlers.RegisterRoutes(app, fakeProtect)

	return &testServer{app: app, docs: docs, objects: objects, cfg: cfg, fixture: testutil.NewDocumentFixture()}
}

type response struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]interface{}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := s.app.Test(req, int((5 * time.Second).Milliseconds()))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (r response) field(path ...string) interface{} {
	var cur interface{} = r.body
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

const (
	admin = "acme:admin"
	staff = "acme:staff"
)
