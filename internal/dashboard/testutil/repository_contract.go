package testutil

import (
	"context"
	"testing"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	apperrors "office-dashboard/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDocumentRepositoryContract checks behavior every DocumentRepository
// adapter must share. tenantA and tenantB must start empty.
func RunDocumentRepositoryContract(t *testing.T, repo repository.DocumentRepository, tenantA, tenantB string) {
	ctx := context.Background()
	fx := NewDocumentFixture()

	t.Run("create and get", func(t *testing.T) {
		inv := fx.Invoice("inv-1", 100, "sent")
		require.NoError(t, repo.Create(ctx, tenantA, inv))

		got, err := repo.Get(ctx, tenantA, "invoices", "inv-1")
		require.NoError(t, err)
		assert.Equal(t, "inv-1", got.ID)
		assert.Equal(t, "invoices", got.Kind)
		assert.Equal(t, tenantA, got.TenantID)
		assert.Equal(t, 100.0, got.Data["amount"])
		assert.True(t, got.CreatedAt.Equal(fx.Now))

		err = repo.Create(ctx, tenantA, inv)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		_, err := repo.Get(ctx, tenantB, "invoices", "inv-1")
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

		docs, err := repo.List(ctx, tenantB, "invoices", model.Query{Limit: 10}, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("update", func(t *testing.T) {
		got, err := repo.Get(ctx, tenantA, "invoices", "inv-1")
		require.NoError(t, err)
		got.Data["status"] = "paid"
		got.UpdatedAt = fx.Now.Add(1)
		require.NoError(t, repo.Update(ctx, tenantA, got))

		again, err := repo.Get(ctx, tenantA, "invoices", "inv-1")
		require.NoError(t, err)
		assert.Equal(t, "paid", again.Data["status"])

		missing := fx.Invoice("nope", 1, "draft")
		assert.ErrorIs(t, repo.Update(ctx, tenantA, missing), apperrors.ErrDocumentNotFound)
	})

	t.Run("list filters sorts and pages", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, tenantA, fx.Invoice("inv-2", 50, "sent")))
		require.NoError(t, repo.Create(ctx, tenantA, fx.Invoice("inv-3", 75, "draft")))

		docs, err := repo.List(ctx, tenantA, "invoices", model.Query{
			Filters:   []model.Filter{{Field: "amount", Operator: model.OperatorGreaterThanOrEqual, Value: 60.0}},
			OrderBy:   "amount",
			Direction: model.Ascending,
			Limit:     10,
		}, nil)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "inv-3", docs[0].ID)
		assert.Equal(t, "inv-1", docs[1].ID)

		docs, err = repo.List(ctx, tenantA, "invoices", model.Query{
			Filters:   []model.Filter{{Field: "status", Operator: model.OperatorIn, Value: []interface{}{"sent", "draft"}}},
			OrderBy:   "amount",
			Direction: model.Descending,
			Limit:     1,
			Offset:    1,
		}, nil)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "inv-2", docs[0].ID, "paid invoice excluded, second page of two")

		docs, err = repo.List(ctx, tenantA, "invoices", model.Query{Search: "inv-2", OrderBy: "amount", Limit: 10}, []string{"number"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "inv-2", docs[0].ID)
	})

	t.Run("get many skips missing", func(t *testing.T) {
		docs, err := repo.GetMany(ctx, tenantA, "invoices", []string{"inv-2", "ghost"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "inv-2", docs[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, tenantA, "invoices", "inv-2"))
		assert.ErrorIs(t, repo.Delete(ctx, tenantA, "invoices", "inv-2"), apperrors.ErrDocumentNotFound)
	})

	t.Run("tenants", func(t *testing.T) {
		tenants, err := repo.Tenants(ctx)
		require.NoError(t, err)
		assert.Contains(t, tenants, tenantA)
	})
}
