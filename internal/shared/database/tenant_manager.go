package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"office-dashboard/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TenantConfig controls how tenant databases are named.
type TenantConfig struct {
	DatabasePrefix string `env:"TENANT_DB_PREFIX" envDefault:"office_org_"`
}

// TenantManager hands out one MongoDB database per organization so that
// tenant data never shares a collection.
type TenantManager struct {
	client *mongo.Client
	prefix string
	mu     sync.RWMutex
	dbs    map[string]*mongo.Database
	logger logger.Logger
}

// NewTenantManager creates a tenant manager over client.
func NewTenantManager(client *mongo.Client, cfg TenantConfig, log logger.Logger) *TenantManager {
	if cfg.DatabasePrefix == "" {
		cfg.DatabasePrefix = "office_org_"
	}
	return &TenantManager{
		client: client,
		prefix: cfg.DatabasePrefix,
		dbs:    make(map[string]*mongo.Database),
		logger: log.WithComponent("tenant-manager"),
	}
}

// Database returns the database for tenantID, registering it on first use.
func (tm *TenantManager) Database(ctx context.Context, tenantID string) (*mongo.Database, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	tm.mu.RLock()
	db, ok := tm.dbs[tenantID]
	tm.mu.RUnlock()
	if ok {
		return db, nil
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if db, ok := tm.dbs[tenantID]; ok {
		return db, nil
	}

	db = tm.client.Database(tm.DatabaseName(tenantID))
	// MongoDB creates databases lazily; the marker document makes the
	// tenant show up in Tenants() before its first entity write.
	_, err := db.Collection("_tenant").UpdateOne(ctx,
		bson.M{"_id": "tenant"},
		bson.M{"$setOnInsert": bson.M{"tenantId": tenantID, "createdAt": time.Now().UTC()}},
		optionsUpsert(),
	)
	if err != nil {
		return nil, fmt.Errorf("register tenant database: %w", err)
	}

	tm.dbs[tenantID] = db
	tm.logger.WithFields(map[string]interface{}{
		"tenant_id":     tenantID,
		"database_name": db.Name(),
	}).Info("tenant database ready")
	return db, nil
}

// Tenants lists every tenant that has a database.
func (tm *TenantManager) Tenants(ctx context.Context) ([]string, error) {
	names, err := tm.client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	var tenants []string
	for _, name := range names {
		if !strings.HasPrefix(name, tm.prefix) {
			continue
		}
		var marker struct {
			TenantID string `bson:"tenantId"`
		}
		err := tm.client.Database(name).Collection("_tenant").FindOne(ctx, bson.M{"_id": "tenant"}).Decode(&marker)
		if err != nil || marker.TenantID == "" {
			continue
		}
		tenants = append(tenants, marker.TenantID)
	}
	return tenants, nil
}

// Drop deletes the database of tenantID.
func (tm *TenantManager) Drop(ctx context.Context, tenantID string) error {
	tm.mu.Lock()
	delete(tm.dbs, tenantID)
	tm.mu.Unlock()
	return tm.client.Database(tm.DatabaseName(tenantID)).Drop(ctx)
}

// DatabaseName maps a tenant id onto a MongoDB database name.
func (tm *TenantManager) DatabaseName(tenantID string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return tm.prefix + r.Replace(strings.ToLower(tenantID))
}

// ValidateTenantID accepts 1-64 chars of letters, digits, '-', '_' and '.'.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if len(tenantID) > 64 {
		return fmt.Errorf("tenant ID too long (max 64 characters)")
	}
	for _, c := range tenantID {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.') {
			return fmt.Errorf("tenant ID contains invalid characters")
		}
	}
	return nil
}
