package repository

import (
	"context"

	"office-dashboard/internal/dashboard/domain/model"
)

// DocumentRepository persists entity documents. Every call is scoped to a
// tenant; implementations must never let one tenant read another's data.
type DocumentRepository interface {
	Create(ctx context.Context, tenantID string, doc *model.Document) error
	Get(ctx context.Context, tenantID, kind, id string) (*model.Document, error)
	// Update replaces the stored data and updatedAt of an existing document.
	Update(ctx context.Context, tenantID string, doc *model.Document) error
	Delete(ctx context.Context, tenantID, kind, id string) error
	// List runs a normalized query. searchFields come from the kind.
	List(ctx context.Context, tenantID, kind string, q model.Query, searchFields []string) ([]*model.Document, error)
	// GetMany loads documents by id, skipping ids that do not exist.
	GetMany(ctx context.Context, tenantID, kind string, ids []string) ([]*model.Document, error)
	// Tenants lists tenants that have stored anything.
	Tenants(ctx context.Context) ([]string, error)
}
