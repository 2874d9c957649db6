package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"office-dashboard/internal/dashboard/adapter/persistence/memory"
	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/testutil"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/utils"

	"github.com/stretchr/testify/require"
)

const (
	tenantAcme   = "acme"
	tenantGlobex = "globex"
)

// changeRecorder captures every change event published on the bus.
type changeRecorder struct {
	mu      sync.Mutex
	changes []model.ChangeEvent
}

func (r *changeRecorder) handle(_ context.Context, ev eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev.Data().(model.ChangeEvent))
	return nil
}

func (r *changeRecorder) all() []model.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChangeEvent(nil), r.changes...)
}

func (r *changeRecorder) last() model.ChangeEvent {
	all := r.all()
	return all[len(all)-1]
}

type testEnv struct {
	repo     *memory.DocumentRepository
	bus      *eventbus.EventBus
	docs     *DocumentService
	recorder *changeRecorder
	fixture  *testutil.DocumentFixture
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     memory.NewDocumentRepository(),
		bus:      eventbus.NewEventBus(logger.Nop()),
		recorder: &changeRecorder{},
		fixture:  testutil.NewDocumentFixture(),
	}
	env.clock = env.fixture.Now
	env.docs = NewDocumentService(catalog.MustDefault(), env.repo, env.bus, logger.Nop())
	env.docs.SetClock(func() time.Time { return env.clock })
	env.bus.SubscribeMany([]string{
		eventbus.EventTypeDocumentCreated,
		eventbus.EventTypeDocumentUpdated,
		eventbus.EventTypeDocumentDeleted,
	}, "test-recorder", env.recorder.handle)
	return env
}

func (e *testEnv) tick(d time.Duration) { e.clock = e.clock.Add(d) }

func asRole(tenantID, role, email string) context.Context {
	return utils.WithPrincipal(context.Background(), utils.Principal{
		UserID:   "user-" + role,
		Email:    email,
		TenantID: tenantID,
		Role:     role,
	})
}

func adminCtx() context.Context { return asRole(tenantAcme, "admin", "admin@acme.test") }

func staffCtx() context.Context { return asRole(tenantAcme, "staff", "sam@acme.test") }

// create stores a document through the usecase and fails the test on error.
func (e *testEnv) create(t *testing.T, ctx context.Context, kind string, data map[string]interface{}) *model.Document {
	t.Helper()
	res, err := e.docs.Create(ctx, kind, data)
	require.NoError(t, err)
	return res.Document
}

func (e *testEnv) createLandingPage(t *testing.T, slug string) *model.Document {
	t.Helper()
	return e.create(t, adminCtx(), model.KindLandingPages, e.fixture.LandingPage("", slug).Data)
}
