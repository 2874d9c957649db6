package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"office-dashboard/internal/dashboard/domain/model"
	apperrors "office-dashboard/internal/shared/errors"
)

// CallableFunc is a server mutation function invoked by name.
type CallableFunc func(ctx context.Context, data map[string]interface{}) (interface{}, error)

// FunctionUsecase dispatches callable functions.
type FunctionUsecase interface {
	Call(ctx context.Context, name string, data map[string]interface{}) (interface{}, error)
	Names() []string
}

// FunctionRegistry holds the generated <kind>.create|update|delete
// functions plus the hand-written ones.
type FunctionRegistry struct {
	docs *DocumentService
	fns  map[string]CallableFunc
}

var _ FunctionUsecase = (*FunctionRegistry)(nil)

func NewFunctionRegistry(docs *DocumentService) *FunctionRegistry {
	r := &FunctionRegistry{docs: docs, fns: make(map[string]CallableFunc)}
	for _, k := range docs.Catalog().Writable() {
		kind := k.Name
		r.Register(kind+".create", func(ctx context.Context, data map[string]interface{}) (interface{}, error) {
			return docs.Create(ctx, kind, data)
		})
		r.Register(kind+".update", func(ctx context.Context, data map[string]interface{}) (interface{}, error) {
			id, fields, err := splitID(data)
			if err != nil {
				return nil, err
			}
			return docs.Update(ctx, kind, id, fields)
		})
		r.Register(kind+".delete", func(ctx context.Context, data map[string]interface{}) (interface{}, error) {
			id, _, err := splitID(data)
			if err != nil {
				return nil, err
			}
			return docs.Delete(ctx, kind, id)
		})
	}
	r.Register("invoices.markPaid", r.markInvoicePaid)
	for _, kind := range model.PageKinds {
		kind := kind
		r.Register(kind+".duplicate", func(ctx context.Context, data map[string]interface{}) (interface{}, error) {
			return r.duplicatePage(ctx, kind, data)
		})
	}
	return r
}

// Register adds or replaces a function.
func (r *FunctionRegistry) Register(name string, fn CallableFunc) {
	r.fns[name] = fn
}

func (r *FunctionRegistry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for n := range r.fns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *FunctionRegistry) Call(ctx context.Context, name string, data map[string]interface{}) (interface{}, error) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("function %q", name))
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	return fn(ctx, data)
}

func splitID(data map[string]interface{}) (string, map[string]interface{}, error) {
	id, _ := data[model.KeyID].(string)
	if strings.TrimSpace(id) == "" {
		return "", nil, apperrors.NewValidationErrors().Add(model.KeyID, "id is required", nil)
	}
	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k != model.KeyID {
			fields[k] = v
		}
	}
	return id, fields, nil
}

// markInvoicePaid sets status=paid and stamps paidAt, now unless the
// caller passes one. Cancelled and already-paid invoices are refused.
func (r *FunctionRegistry) markInvoicePaid(ctx context.Context, data map[string]interface{}) (interface{}, error) {
	id, _, err := splitID(data)
	if err != nil {
		return nil, err
	}
	current, err := r.docs.Get(ctx, model.KindInvoices, id)
	if err != nil {
		return nil, err
	}
	switch current.String("status") {
	case "cancelled":
		return nil, apperrors.NewValidationErrors().Add("status", "A cancelled invoice cannot be paid", "cancelled")
	case "paid":
		return nil, apperrors.NewValidationErrors().Add("status", "Invoice is already paid", "paid")
	}
	var paidAt interface{} = r.docs.now()
	if v, ok := data["paidAt"]; ok && v != nil {
		paidAt = v
	}
	res, err := r.docs.Update(ctx, model.KindInvoices, id, map[string]interface{}{
		"status": "paid",
		"paidAt": paidAt,
	})
	if err != nil {
		return nil, err
	}
	res.Notice.Message = "Invoice marked as paid"
	return res, nil
}

// duplicatePage copies a page under a fresh slug. The copy starts
// unpublished so it never goes live by accident.
func (r *FunctionRegistry) duplicatePage(ctx context.Context, kind string, data map[string]interface{}) (interface{}, error) {
	id, _, err := splitID(data)
	if err != nil {
		return nil, err
	}
	src, err := r.docs.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	copyData := model.CloneData(src.Data)
	base := src.String("slug") + "-copy"
	if s, ok := data["slug"].(string); ok && s != "" {
		base = s
	}
	slug, err := r.freeSlug(ctx, p.TenantID, base)
	if err != nil {
		return nil, err
	}
	copyData["slug"] = slug
	copyData["title"] = src.String("title") + " (copy)"
	copyData["published"] = false

	res, err := r.docs.Create(ctx, kind, copyData)
	if err != nil {
		return nil, err
	}
	k, _ := r.docs.Catalog().Kind(kind)
	res.Notice.Message = k.Label + " duplicated"
	return res, nil
}

func (r *FunctionRegistry) freeSlug(ctx context.Context, tenantID, base string) (string, error) {
	candidate := base
	for n := 2; n < 100; n++ {
		taken := false
		for _, pk := range model.PageKinds {
			docs, err := r.docs.repo.List(ctx, tenantID, pk, model.Query{
				Filters: []model.Filter{{Field: "slug", Operator: model.OperatorEqual, Value: candidate}},
				OrderBy: model.KeyID,
				Limit:   1,
			}, nil)
			if err != nil {
				return "", err
			}
			if len(docs) > 0 {
				taken = true
				break
			}
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", apperrors.NewConflictError("no free slug for " + base)
}
