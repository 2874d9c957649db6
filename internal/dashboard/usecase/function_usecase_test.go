package usecase

import (
	"errors"
	"testing"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	apperrors "office-dashboard/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionRegistryNames(t *testing.T) {
	env := newTestEnv(t)
	names := NewFunctionRegistry(env.docs).Names()

	assert.Contains(t, names, "clients.create")
	assert.Contains(t, names, "clients.update")
	assert.Contains(t, names, "clients.delete")
	assert.Contains(t, names, "invoices.markPaid")
	assert.Contains(t, names, "presentations.duplicate")
	assert.Contains(t, names, "landingPages.duplicate")
	assert.NotContains(t, names, "responses.create", "read-only kinds get no mutations")
	assert.NotContains(t, names, "mediaAssets.delete")
	assert.IsIncreasing(t, names)
}

func TestFunctionRegistryCall(t *testing.T) {
	env := newTestEnv(t)
	fns := NewFunctionRegistry(env.docs)

	out, err := fns.Call(adminCtx(), "clients.create", map[string]interface{}{"name": "Initech"})
	require.NoError(t, err)
	created := out.(*model.MutationResult)
	assert.Equal(t, "Client created", created.Notice.Message)

	out, err = fns.Call(adminCtx(), "clients.update", map[string]interface{}{"id": created.Document.ID, "status": "active"})
	require.NoError(t, err)
	assert.Equal(t, "active", out.(*model.MutationResult).Document.Data["status"])

	_, err = fns.Call(adminCtx(), "clients.update", map[string]interface{}{"status": "active"})
	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.Fields(), "id")

	out, err = fns.Call(adminCtx(), "clients.delete", map[string]interface{}{"id": created.Document.ID})
	require.NoError(t, err)
	assert.Equal(t, "Client deleted", out.(*model.MutationResult).Notice.Message)

	_, err = fns.Call(adminCtx(), "clients.explode", nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMarkInvoicePaid(t *testing.T) {
	env := newTestEnv(t)
	fns := NewFunctionRegistry(env.docs)
	sent := env.create(t, adminCtx(), model.KindInvoices, map[string]interface{}{
		"number": "A-1", "amount": 120, "issueDate": "2024-04-01", "status": "sent",
	})
	cancelled := env.create(t, adminCtx(), model.KindInvoices, map[string]interface{}{
		"number": "A-2", "amount": 80, "issueDate": "2024-04-01", "status": "cancelled",
	})

	env.tick(time.Hour)
	out, err := fns.Call(adminCtx(), "invoices.markPaid", map[string]interface{}{"id": sent.ID})
	require.NoError(t, err)
	res := out.(*model.MutationResult)
	assert.Equal(t, "Invoice marked as paid", res.Notice.Message)
	assert.Equal(t, "paid", res.Document.Data["status"])
	assert.Equal(t, env.clock, res.Document.Data["paidAt"])

	_, err = fns.Call(adminCtx(), "invoices.markPaid", map[string]interface{}{"id": sent.ID})
	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "Invoice is already paid", verrs.Fields()["status"])

	_, err = fns.Call(adminCtx(), "invoices.markPaid", map[string]interface{}{"id": cancelled.ID})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "A cancelled invoice cannot be paid", verrs.Fields()["status"])

	t.Run("explicit paidAt", func(t *testing.T) {
		inv := env.create(t, adminCtx(), model.KindInvoices, map[string]interface{}{
			"number": "A-3", "amount": 10, "issueDate": "2024-04-01", "status": "overdue",
		})
		out, err := fns.Call(adminCtx(), "invoices.markPaid", map[string]interface{}{"id": inv.ID, "paidAt": "2024-04-20"})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), out.(*model.MutationResult).Document.Data["paidAt"])
	})

	t.Run("staff may not", func(t *testing.T) {
		inv := env.create(t, adminCtx(), model.KindInvoices, map[string]interface{}{
			"number": "A-4", "amount": 10, "issueDate": "2024-04-01", "status": "sent",
		})
		_, err := fns.Call(staffCtx(), "invoices.markPaid", map[string]interface{}{"id": inv.ID})
		assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	})
}

func TestDuplicatePage(t *testing.T) {
	env := newTestEnv(t)
	fns := NewFunctionRegistry(env.docs)
	src := env.createLandingPage(t, "spring-offer")

	out, err := fns.Call(adminCtx(), "landingPages.duplicate", map[string]interface{}{"id": src.ID})
	require.NoError(t, err)
	first := out.(*model.MutationResult)
	assert.Equal(t, "Landing page duplicated", first.Notice.Message)
	assert.NotEqual(t, src.ID, first.Document.ID)
	assert.Equal(t, "spring-offer-copy", first.Document.Data["slug"])
	assert.Equal(t, "Spring offer (copy)", first.Document.Data["title"])
	assert.Equal(t, false, first.Document.Data["published"])
	assert.Equal(t, src.Data["questions"], first.Document.Data["questions"])

	out, err = fns.Call(adminCtx(), "landingPages.duplicate", map[string]interface{}{"id": src.ID})
	require.NoError(t, err)
	assert.Equal(t, "spring-offer-copy-2", out.(*model.MutationResult).Document.Data["slug"])

	out, err = fns.Call(adminCtx(), "landingPages.duplicate", map[string]interface{}{"id": src.ID, "slug": "autumn"})
	require.NoError(t, err)
	assert.Equal(t, "autumn", out.(*model.MutationResult).Document.Data["slug"])

	_, err = fns.Call(adminCtx(), "presentations.duplicate", map[string]interface{}{"id": src.ID})
	assert.True(t, apperrors.IsNotFound(err), "ids are scoped to their kind")
}
