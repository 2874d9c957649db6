package memory_test

import (
	"context"
	"testing"

	"office-dashboard/internal/dashboard/adapter/persistence/memory"
	"office-dashboard/internal/dashboard/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepositoryContract(t *testing.T) {
	testutil.RunDocumentRepositoryContract(t, memory.NewDocumentRepository(), "acme", "globex")
}

func TestStoredDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepository()
	doc := testutil.NewDocumentFixture().Client("c1", "Ana")
	require.NoError(t, repo.Create(ctx, "acme", doc))

	doc.Data["name"] = "changed after create"
	got, err := repo.Get(ctx, "acme", "clients", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Data["name"])

	got.Data["name"] = "changed after get"
	again, _ := repo.Get(ctx, "acme", "clients", "c1")
	assert.Equal(t, "Ana", again.Data["name"])
}

func TestRegisterListsTenant(t *testing.T) {
	repo := memory.NewDocumentRepository()
	repo.Register("initech")
	tenants, err := repo.Tenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"initech"}, tenants)
}
