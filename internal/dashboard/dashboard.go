// Package dashboard wires the office dashboard: the entity catalog, live
// queries, public pages, media and the maintenance jobs.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	dashhttp "office-dashboard/internal/dashboard/adapter/http"
	"office-dashboard/internal/dashboard/adapter/notify"
	"office-dashboard/internal/dashboard/adapter/persistence/memory"
	"office-dashboard/internal/dashboard/adapter/persistence/mongodb"
	"office-dashboard/internal/dashboard/adapter/persistence/redisstore"
	"office-dashboard/internal/dashboard/adapter/storage"
	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/config"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/dashboard/render"
	"office-dashboard/internal/dashboard/scheduler"
	"office-dashboard/internal/dashboard/usecase"
	"office-dashboard/internal/shared/database"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the shared connections the module runs on. Tenants is
// required for the mongo store; Redis may be nil.
type Dependencies struct {
	Bus     *eventbus.EventBus
	Tenants *database.TenantManager
	Redis   redis.UniversalClient
}

// DashboardModule holds the dashboard services and their HTTP handlers.
type DashboardModule struct {
	Config    *config.DashboardConfig
	Repo      repository.DocumentRepository
	Documents *usecase.DocumentService
	Functions *usecase.FunctionRegistry
	Realtime  *usecase.RealtimeService
	Pages     *usecase.PageService
	Media     *usecase.MediaService
	EventLog  repository.EventStore
	Scheduler *scheduler.Scheduler

	handlers *dashhttp.Handlers
	logger   logger.Logger
}

// NewDashboardModule builds the module. ctx bounds connection checks made
// while building, such as the MinIO bucket lookup.
func NewDashboardModule(ctx context.Context, cfg *config.DashboardConfig, deps Dependencies, log logger.Logger) (*DashboardModule, error) {
	if cfg == nil {
		cfg = config.DefaultDashboardConfig()
	}
	if deps.Bus == nil {
		return nil, errors.New("dashboard: event bus is required")
	}
	log = log.WithComponent("dashboard")

	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("load entity catalog: %w", err)
	}

	var repo repository.DocumentRepository
	switch cfg.Store.Backend {
	case config.StoreMongo:
		if deps.Tenants == nil {
			return nil, errors.New("dashboard: tenant manager is required for the mongo store")
		}
		repo = mongodb.NewDocumentRepository(deps.Tenants, log)
	default:
		repo = memory.NewDocumentRepository()
	}
	provisionTenants(deps.Bus, repo, deps.Tenants, log)

	var (
		events repository.EventStore
		cache  repository.PageCache
	)
	if deps.Redis != nil {
		events = redisstore.NewEventStore(deps.Redis, log)
		cache = redisstore.NewPageCache(deps.Redis)
	} else {
		log.Warn("redis disabled: live queries cannot resume and pages are rendered on every request")
	}

	var notifier repository.Notifier
	if cfg.Mail.SendGridAPIKey != "" {
		notifier = notify.NewSendGridNotifier(cfg.Mail.SendGridAPIKey, "", cfg.Mail.FromName, cfg.Mail.FromEmail, log)
	} else {
		notifier = notify.NewConsoleNotifier(log)
	}

	var objects repository.ObjectStore
	if cfg.Media.Endpoint != "" {
		minioStore, err := storage.NewMinIOStorage(ctx, cfg.Media)
		if err != nil {
			return nil, fmt.Errorf("connect object storage: %w", err)
		}
		objects = minioStore
	} else {
		log.Warn("MINIO_ENDPOINT not set, media uploads are kept in memory")
		objects = storage.NewMemoryStorage("/media")
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load page templates: %w", err)
	}

	docs := usecase.NewDocumentService(cat, repo, deps.Bus, log)
	realtime := usecase.NewRealtimeService(docs, events, log)
	realtime.Register(deps.Bus)
	pages := usecase.NewPageService(docs, renderer, cache, notifier, cfg.Pages.CacheTTL, log)
	pages.Register(deps.Bus)
	media := usecase.NewMediaService(docs, objects, cfg.Media.MaxUploadBytes(), cfg.Media.URLExpiry, log)
	functions := usecase.NewFunctionRegistry(docs)

	m := &DashboardModule{
		Config:    cfg,
		Repo:      repo,
		Documents: docs,
		Functions: functions,
		Realtime:  realtime,
		Pages:     pages,
		Media:     media,
		EventLog:  events,
		handlers: &dashhttp.Handlers{
			Entities:  dashhttp.NewEntityHandler(docs, log),
			Functions: dashhttp.NewFunctionHandler(functions, log),
			Pages:     dashhttp.NewPageHandler(pages, cfg.Pages.ResponsesPerMinute, log),
			Media:     dashhttp.NewMediaHandler(media, log),
			Live:      dashhttp.NewWebSocketHandler(realtime, cfg.Realtime, log),
		},
		logger: log,
	}

	if cfg.Scheduler.Enabled {
		if err := m.scheduleJobs(); err != nil {
			return nil, err
		}
	}
	log.WithFields(map[string]interface{}{
		"store":     cfg.Store.Backend,
		"redis":     deps.Redis != nil,
		"kinds":     len(cat.Kinds()),
		"functions": len(functions.Names()),
	}).Info("dashboard module initialized")
	return m, nil
}

// provisionTenants prepares storage for organizations as they register.
func provisionTenants(bus *eventbus.EventBus, repo repository.DocumentRepository, tenants *database.TenantManager, log logger.Logger) {
	bus.Subscribe(eventbus.EventTypeTenantRegistered, "dashboard-tenant-provisioning", func(ctx context.Context, ev eventbus.Event) error {
		tenantID, ok := ev.Data().(string)
		if !ok || tenantID == "" {
			return fmt.Errorf("unexpected payload %T", ev.Data())
		}
		if mem, ok := repo.(*memory.DocumentRepository); ok {
			mem.Register(tenantID)
		} else if tenants != nil {
			if _, err := tenants.Database(ctx, tenantID); err != nil {
				return err
			}
		}
		log.WithFields(map[string]interface{}{"tenant_id": tenantID}).Info("tenant provisioned")
		return nil
	})
}

func (m *DashboardModule) scheduleJobs() error {
	m.Scheduler = scheduler.New(m.logger)
	sweep := scheduler.NewInvoiceSweep(m.Documents, m.Repo, m.logger)
	if err := m.Scheduler.Add(scheduler.JobInvoiceSweep, m.Config.Scheduler.InvoiceSweepSpec, sweep.Run); err != nil {
		return err
	}
	if m.EventLog != nil {
		trim := scheduler.NewStreamTrim(m.EventLog, m.Config.Redis.StreamMaxLength, m.logger)
		if err := m.Scheduler.Add(scheduler.JobStreamTrim, m.Config.Scheduler.StreamTrimSpec, trim.Run); err != nil {
			return err
		}
	}
	return nil
}

// RegisterRoutes mounts the dashboard API. protect must authenticate the
// request and put the principal on the request context and in the locals.
func (m *DashboardModule) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	m.handlers.RegisterRoutes(router, protect)
}

// Start launches the background jobs.
func (m *DashboardModule) Start() {
	if m.Scheduler != nil {
		m.Scheduler.Start()
	}
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *DashboardModule) Stop(ctx context.Context) error {
	if m.Scheduler == nil {
		return nil
	}
	return m.Scheduler.Stop(ctx)
}
