// Package memory keeps documents in process memory. It backs tests and
// STORE=memory deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	apperrors "office-dashboard/internal/shared/errors"
)

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

// DocumentRepository stores tenant -> kind -> id -> document.
type DocumentRepository struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]*model.Document
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{data: make(map[string]map[string]map[string]*model.Document)}
}

func (r *DocumentRepository) collection(tenantID, kind string, create bool) map[string]*model.Document {
	kinds, ok := r.data[tenantID]
	if !ok {
		if !create {
			return nil
		}
		kinds = make(map[string]map[string]*model.Document)
		r.data[tenantID] = kinds
	}
	docs, ok := kinds[kind]
	if !ok && create {
		docs = make(map[string]*model.Document)
		kinds[kind] = docs
	}
	return docs
}

func (r *DocumentRepository) Create(_ context.Context, tenantID string, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.collection(tenantID, doc.Kind, true)
	if _, exists := docs[doc.ID]; exists {
		return fmt.Errorf("%w: %s/%s", apperrors.ErrConflict, doc.Kind, doc.ID)
	}
	stored := doc.Clone()
	stored.TenantID = tenantID
	docs[doc.ID] = stored
	return nil
}

func (r *DocumentRepository) Get(_ context.Context, tenantID, kind, id string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.collection(tenantID, kind, false)[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (r *DocumentRepository) Update(_ context.Context, tenantID string, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.collection(tenantID, doc.Kind, false)
	if _, ok := docs[doc.ID]; !ok {
		return apperrors.ErrDocumentNotFound
	}
	stored := doc.Clone()
	stored.TenantID = tenantID
	docs[doc.ID] = stored
	return nil
}

func (r *DocumentRepository) Delete(_ context.Context, tenantID, kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.collection(tenantID, kind, false)
	if _, ok := docs[id]; !ok {
		return apperrors.ErrDocumentNotFound
	}
	delete(docs, id)
	return nil
}

func (r *DocumentRepository) List(_ context.Context, tenantID, kind string, q model.Query, searchFields []string) ([]*model.Document, error) {
	r.mu.RLock()
	docs := r.collection(tenantID, kind, false)
	all := make([]*model.Document, 0, len(docs))
	for _, d := range docs {
		all = append(all, d.Clone())
	}
	r.mu.RUnlock()
	return q.Apply(all, searchFields), nil
}

func (r *DocumentRepository) GetMany(_ context.Context, tenantID, kind string, ids []string) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.collection(tenantID, kind, false)
	out := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := docs[id]; ok {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (r *DocumentRepository) Tenants(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.data))
	for t := range r.data {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Register makes tenantID visible to Tenants before its first write.
func (r *DocumentRepository) Register(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[tenantID]; !ok {
		r.data[tenantID] = make(map[string]map[string]*model.Document)
	}
}
