package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"office-dashboard/internal/auth"
	authmemory "office-dashboard/internal/auth/adapter/persistence/memory"
	authmongodb "office-dashboard/internal/auth/adapter/persistence/mongodb"
	authconfig "office-dashboard/internal/auth/config"
	"office-dashboard/internal/auth/domain/repository"
	"office-dashboard/internal/dashboard"
	dashconfig "office-dashboard/internal/dashboard/config"
	"office-dashboard/internal/shared/database"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Container owns the connections and modules of the service and shuts
// them down in reverse order.
type Container struct {
	mu sync.RWMutex

	// Infrastructure
	MongoClient   *mongo.Client
	TenantManager *database.TenantManager
	Redis         *redis.Client
	EventBus      *eventbus.EventBus

	// Configuration
	AuthConfig      *authconfig.Config
	DashboardConfig *dashconfig.DashboardConfig

	// Modules
	AuthModule      *auth.AuthModule
	DashboardModule *dashboard.DashboardModule

	Logger logger.Logger
}

// NewContainer creates an empty container logging to log.
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{Logger: log, EventBus: eventbus.NewEventBus(log)}
}

// InitializeInfrastructure connects the stores selected by the dashboard
// configuration: MongoDB for STORE=mongo and Redis when a host is set.
func (c *Container) InitializeInfrastructure(ctx context.Context, dashCfg *dashconfig.DashboardConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DashboardConfig = dashCfg

	if dashCfg.Store.Backend == dashconfig.StoreMongo {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(dashCfg.Store.MongoDBURI))
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		c.MongoClient = client
		c.TenantManager = database.NewTenantManager(client, database.TenantConfig{DatabasePrefix: dashCfg.Store.DatabasePrefix}, c.Logger)
		c.Logger.Info("MongoDB connection established")
	} else {
		c.Logger.Warn("STORE=memory: data is lost on restart")
	}

	if dashCfg.Redis.Enabled() {
		client := dashconfig.NewRedisClient(&dashCfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to Redis at %s: %w", dashCfg.Redis.GetAddr(), err)
		}
		c.Redis = client
		c.Logger.Infof("Redis connection established at %s", dashCfg.Redis.GetAddr())
	}
	return nil
}

// InitializeAuth builds the auth module on MongoDB when connected and on
// the in-memory repository otherwise.
func (c *Container) InitializeAuth(ctx context.Context, authCfg *authconfig.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AuthConfig = authCfg

	var repo repository.AuthRepository
	if c.MongoClient != nil {
		mongoRepo, err := authmongodb.NewMongoAuthRepository(ctx, c.MongoClient.Database(authCfg.DatabaseName))
		if err != nil {
			return fmt.Errorf("failed to create auth repository: %w", err)
		}
		repo = mongoRepo
	} else {
		repo = authmemory.NewAuthRepository()
	}

	authModule, err := auth.NewAuthModule(repo, authCfg, c.EventBus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}
	c.AuthModule = authModule
	return nil
}

// InitializeDashboard builds the dashboard module. It must run after
// InitializeInfrastructure.
func (c *Container) InitializeDashboard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DashboardConfig == nil {
		return errors.New("infrastructure must be initialized before the dashboard module")
	}

	deps := dashboard.Dependencies{Bus: c.EventBus, Tenants: c.TenantManager}
	if c.Redis != nil {
		deps.Redis = c.Redis
	}
	m, err := dashboard.NewDashboardModule(ctx, c.DashboardConfig, deps, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create dashboard module: %w", err)
	}
	c.DashboardModule = m
	return nil
}

// HealthCheck pings the connected stores.
func (c *Container) HealthCheck(ctx context.Context) map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]error)
	if c.MongoClient != nil {
		out["mongodb"] = c.MongoClient.Ping(ctx, nil)
	}
	if c.Redis != nil {
		out["redis"] = c.Redis.Ping(ctx).Err()
	}
	return out
}

// Cleanup stops the modules, then closes the connections.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.DashboardModule != nil {
		if err := c.DashboardModule.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop dashboard: %w", err))
		}
		c.DashboardModule = nil
	}
	c.AuthModule = nil

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.Redis = nil
	}
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongodb: %w", err))
		}
		c.MongoClient = nil
	}
	return errors.Join(errs...)
}

// Close runs Cleanup with a 30 second budget.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("cleanup errors occurred: %v", err)
		return err
	}
	c.Logger.Info("container resources closed")
	return nil
}
