package usecase

import (
	"context"
	"fmt"
	"time"

	"office-dashboard/internal/dashboard/catalog"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/eventbus"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/metrics"
	"office-dashboard/internal/shared/utils"

	"github.com/google/uuid"
)

const eventSource = "documents"

// DocumentUsecase is the generic CRUD engine over every catalog kind.
type DocumentUsecase interface {
	Create(ctx context.Context, kind string, input map[string]interface{}) (*model.MutationResult, error)
	Update(ctx context.Context, kind, id string, input map[string]interface{}) (*model.MutationResult, error)
	Delete(ctx context.Context, kind, id string) (*model.MutationResult, error)
	Get(ctx context.Context, kind, id string) (*model.Document, error)
	List(ctx context.Context, kind string, q model.Query, expand bool) (*ListResult, error)
	Catalog() *catalog.Catalog
}

// ListResult is a page of documents. Refs maps a reference field to the
// referenced documents by id; a dangling id maps to nil.
type ListResult struct {
	Documents []*model.Document                     `json:"documents"`
	Refs      map[string]map[string]*model.Document `json:"refs,omitempty"`
}

// DocumentService implements DocumentUsecase.
type DocumentService struct {
	catalog *catalog.Catalog
	repo    repository.DocumentRepository
	events  eventbus.Publisher
	logger  logger.Logger
	now     func() time.Time
	newID   func() string
}

var _ DocumentUsecase = (*DocumentService)(nil)

func NewDocumentService(cat *catalog.Catalog, repo repository.DocumentRepository, events eventbus.Publisher, log logger.Logger) *DocumentService {
	return &DocumentService{
		catalog: cat,
		repo:    repo,
		events:  events,
		logger:  log.WithComponent("documents"),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID:   uuid.NewString,
	}
}

// SetClock replaces the time source.
func (s *DocumentService) SetClock(now func() time.Time) { s.now = now }

func (s *DocumentService) Catalog() *catalog.Catalog { return s.catalog }

func principal(ctx context.Context) (utils.Principal, error) {
	p, ok := utils.PrincipalFromContext(ctx)
	if !ok || p.TenantID == "" {
		return utils.Principal{}, apperrors.NewAuthenticationError("authentication required").WithCause(apperrors.ErrUnauthorized)
	}
	return p, nil
}

func (s *DocumentService) kind(name string) (*model.EntityKind, error) {
	k, ok := s.catalog.Kind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownKind, name)
	}
	return k, nil
}

func (s *DocumentService) writableKind(p utils.Principal, name string) (*model.EntityKind, error) {
	k, err := s.kind(name)
	if err != nil {
		return nil, err
	}
	if k.ReadOnly && !p.System {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrReadOnlyKind, name)
	}
	return k, nil
}

func (s *DocumentService) authorize(p utils.Principal, k *model.EntityKind, action catalog.Action, data map[string]interface{}) error {
	ok, err := s.catalog.Allowed(p, k.Name, action, data)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"kind": k.Name, "action": string(action), "error": err.Error()}).Warn("access rule evaluation failed")
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", apperrors.ErrAccessDenied, action, k.Name)
	}
	return nil
}

func (s *DocumentService) Create(ctx context.Context, kindName string, input map[string]interface{}) (*model.MutationResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	k, err := s.writableKind(p, kindName)
	if err != nil {
		return nil, err
	}
	clean, verrs := s.catalog.Validate(k, input, catalog.ModeCreate)
	if verrs != nil {
		return nil, verrs
	}
	if err := s.authorize(p, k, catalog.ActionWrite, clean); err != nil {
		return nil, err
	}
	if err := s.checkUniqueSlug(ctx, p.TenantID, k, "", clean); err != nil {
		return nil, err
	}

	now := s.now()
	doc := &model.Document{
		ID:        s.newID(),
		Kind:      k.Name,
		TenantID:  p.TenantID,
		Data:      clean,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repo.Create(ctx, p.TenantID, doc)
	metrics.RecordMutation(k.Name, string(model.OpCreate), err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.EventTypeDocumentCreated, model.ChangeEvent{
		Op: model.OpCreate, TenantID: p.TenantID, Kind: k.Name, DocumentID: doc.ID,
		Document: doc.Clone(), Timestamp: now,
	})
	return &model.MutationResult{Document: doc, Notice: success(k, "created")}, nil
}

func (s *DocumentService) Update(ctx context.Context, kindName, id string, input map[string]interface{}) (*model.MutationResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	k, err := s.writableKind(p, kindName)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, p.TenantID, k.Name, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(p, k, catalog.ActionWrite, existing.Data); err != nil {
		return nil, err
	}
	clean, verrs := s.catalog.Validate(k, input, catalog.ModeUpdate)
	if verrs != nil {
		return nil, verrs
	}

	updated := existing.Clone()
	if updated.Data == nil {
		updated.Data = make(map[string]interface{})
	}
	for field, v := range clean {
		if v == nil {
			delete(updated.Data, field)
			continue
		}
		updated.Data[field] = v
	}
	if err := s.authorize(p, k, catalog.ActionWrite, updated.Data); err != nil {
		return nil, err
	}
	if err := s.checkUniqueSlug(ctx, p.TenantID, k, id, updated.Data); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	if !updated.UpdatedAt.After(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt.Add(time.Millisecond)
	}

	err = s.repo.Update(ctx, p.TenantID, updated)
	metrics.RecordMutation(k.Name, string(model.OpUpdate), err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.EventTypeDocumentUpdated, model.ChangeEvent{
		Op: model.OpUpdate, TenantID: p.TenantID, Kind: k.Name, DocumentID: id,
		Document: updated.Clone(), Previous: existing, Timestamp: updated.UpdatedAt,
	})
	return &model.MutationResult{Document: updated, Notice: success(k, "updated")}, nil
}

func (s *DocumentService) Delete(ctx context.Context, kindName, id string) (*model.MutationResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	k, err := s.writableKind(p, kindName)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, p.TenantID, k.Name, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(p, k, catalog.ActionWrite, existing.Data); err != nil {
		return nil, err
	}

	err = s.repo.Delete(ctx, p.TenantID, k.Name, id)
	metrics.RecordMutation(k.Name, string(model.OpDelete), err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.EventTypeDocumentDeleted, model.ChangeEvent{
		Op: model.OpDelete, TenantID: p.TenantID, Kind: k.Name, DocumentID: id,
		Previous: existing, Timestamp: s.now(),
	})
	return &model.MutationResult{Document: existing, Notice: success(k, "deleted")}, nil
}

func (s *DocumentService) Get(ctx context.Context, kindName, id string) (*model.Document, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	k, err := s.kind(kindName)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.Get(ctx, p.TenantID, k.Name, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(p, k, catalog.ActionRead, doc.Data); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, kindName string, q model.Query, expand bool) (*ListResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	k, err := s.kind(kindName)
	if err != nil {
		return nil, err
	}
	q, err = PrepareQuery(k, q)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.List(ctx, p.TenantID, k.Name, q, k.SearchFields)
	if err != nil {
		return nil, err
	}
	docs = s.readable(p, k, docs)

	res := &ListResult{Documents: docs}
	if expand {
		res.Refs, err = s.expand(ctx, p, k, docs)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// readable drops documents the principal's read rule rejects.
func (s *DocumentService) readable(p utils.Principal, k *model.EntityKind, docs []*model.Document) []*model.Document {
	if k.Rules.Read == "" {
		return docs
	}
	out := docs[:0]
	for _, d := range docs {
		if ok, _ := s.catalog.Allowed(p, k.Name, catalog.ActionRead, d.Data); ok {
			out = append(out, d)
		}
	}
	return out
}

// expand resolves reference fields by lookup. References are not enforced,
// so a missing target resolves to nil.
func (s *DocumentService) expand(ctx context.Context, p utils.Principal, k *model.EntityKind, docs []*model.Document) (map[string]map[string]*model.Document, error) {
	refs := k.RefFields()
	if len(refs) == 0 || len(docs) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]*model.Document, len(refs))
	for _, f := range refs {
		target, _ := s.catalog.Kind(f.Ref)
		seen := make(map[string]bool)
		var ids []string
		for _, d := range docs {
			if id, ok := d.Data[f.Name].(string); ok && id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		resolved := make(map[string]*model.Document, len(ids))
		for _, id := range ids {
			resolved[id] = nil
		}
		if len(ids) > 0 {
			found, err := s.repo.GetMany(ctx, p.TenantID, f.Ref, ids)
			if err != nil {
				return nil, err
			}
			for _, d := range s.readable(p, target, found) {
				resolved[d.ID] = d
			}
		}
		out[f.Name] = resolved
	}
	return out, nil
}

// checkUniqueSlug keeps public page slugs unique within a tenant across
// every page kind.
func (s *DocumentService) checkUniqueSlug(ctx context.Context, tenantID string, k *model.EntityKind, selfID string, data map[string]interface{}) error {
	if !model.IsPageKind(k.Name) {
		return nil
	}
	slug, _ := data["slug"].(string)
	if slug == "" {
		return nil
	}
	for _, pk := range model.PageKinds {
		docs, err := s.repo.List(ctx, tenantID, pk, model.Query{
			Filters: []model.Filter{{Field: "slug", Operator: model.OperatorEqual, Value: slug}},
			OrderBy: model.KeyID,
			Limit:   2,
		}, nil)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if d.ID != selfID {
				return apperrors.NewValidationErrors().Add("slug", "Slug is already in use", slug)
			}
		}
	}
	return nil
}

func (s *DocumentService) publish(ctx context.Context, eventType string, change model.ChangeEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventbus.NewEvent(eventType, change, eventSource)); err != nil {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"event": eventType,
			"kind":  change.Kind,
			"id":    change.DocumentID,
			"error": err.Error(),
		}).Error("change event delivery failed")
	}
}

func success(k *model.EntityKind, verb string) model.Notice {
	return model.Notice{Level: model.NoticeSuccess, Message: k.Label + " " + verb}
}

// ErrorNotice is the toast shown when a mutation fails.
func ErrorNotice(err error) model.Notice {
	return model.Notice{Level: model.NoticeError, Message: apperrors.AsAppError(err).Message}
}
