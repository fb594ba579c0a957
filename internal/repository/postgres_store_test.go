package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/seqbench/seqbench/internal/logging"
	"github.com/seqbench/seqbench/internal/migrations"
	"github.com/seqbench/seqbench/pkg/models"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("seqbench-test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewRunner(pool, logging.NewLogger()).Up(ctx))
	return pool
}

func mustCreateDataset(t *testing.T, store *PostgresDatasetStore, d models.Dataset) {
	t.Helper()
	if d.Source == "" {
		d.Source = models.DatasetSourceHDA
	}
	if d.State == "" {
		d.State = models.DatasetStateOK
	}
	if d.Extension == "" {
		d.Extension = "data"
	}
	require.NoError(t, store.Create(context.Background(), &d))
}

func TestDatasetCreateAndGet(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresDatasetStore(pool)
	ctx := context.Background()

	mustCreateDataset(t, store, models.Dataset{
		ID: "d1", HistoryID: "h1", Name: "reads", Extension: "fastq",
		Visible: true, FileSize: 1024, ObjectStoreID: "primary",
	})

	d, err := store.Get(ctx, "d1", models.DatasetSourceHDA)
	require.NoError(t, err)
	assert.Equal(t, "reads", d.Name)
	assert.Equal(t, "fastq", d.Extension)
	assert.Equal(t, "h1", d.HistoryID)
	assert.Equal(t, int64(1024), d.FileSize)
	assert.Equal(t, "primary", d.ObjectStoreID)
	assert.False(t, d.CreatedAt.IsZero())

	_, err = store.Get(ctx, "d1", models.DatasetSourceLDDA)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "missing", models.DatasetSourceHDA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatasetListFiltersAndPaging(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresDatasetStore(pool)
	ctx := context.Background()

	mustCreateDataset(t, store, models.Dataset{ID: "d1", HistoryID: "h1", Name: "alpha reads", Extension: "fastq", Visible: true})
	mustCreateDataset(t, store, models.Dataset{ID: "d2", HistoryID: "h1", Name: "beta reads", Extension: "bam", Visible: true})
	mustCreateDataset(t, store, models.Dataset{ID: "d3", HistoryID: "h2", Name: "gamma", Extension: "fastq", Visible: true})

	all, err := store.List(ctx, "", models.FilterQueryParams{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	h1, err := store.List(ctx, "h1", models.FilterQueryParams{Order: "name-asc"})
	require.NoError(t, err)
	require.Len(t, h1, 2)
	assert.Equal(t, "d1", h1[0].ID)
	assert.Equal(t, "d2", h1[1].ID)

	fastq, err := store.List(ctx, "", models.FilterQueryParams{
		Q: []string{"extension-eq"}, Qv: []string{"fastq"}, Order: "name-asc",
	})
	require.NoError(t, err)
	require.Len(t, fastq, 2)
	assert.Equal(t, "d1", fastq[0].ID)
	assert.Equal(t, "d3", fastq[1].ID)

	contains, err := store.List(ctx, "", models.FilterQueryParams{
		Q: []string{"name-contains"}, Qv: []string{"READS"},
	})
	require.NoError(t, err)
	assert.Len(t, contains, 2)

	page, err := store.List(ctx, "", models.FilterQueryParams{Order: "name-asc", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "d2", page[0].ID)

	_, err = store.List(ctx, "", models.FilterQueryParams{Q: []string{"password-eq"}, Qv: []string{"x"}})
	assert.Error(t, err)
	_, err = store.List(ctx, "", models.FilterQueryParams{Order: "id; DROP TABLE dataset"})
	assert.Error(t, err)
}

func TestDatasetConversions(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresDatasetStore(pool)
	ctx := context.Background()

	mustCreateDataset(t, store, models.Dataset{ID: "d1", Name: "reads"})
	mustCreateDataset(t, store, models.Dataset{ID: "c1", Name: "reads (as tabular)", Extension: "tabular"})

	_, err := store.Conversion(ctx, "d1", "tabular")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.AddConversion(ctx, "d1", "tabular", "c1"))

	convertedID, err := store.Conversion(ctx, "d1", "tabular")
	require.NoError(t, err)
	assert.Equal(t, "c1", convertedID)

	conversions, err := store.Conversions(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.ConvertedDatasetsMap{"tabular": "c1"}, conversions)

	conversions, err = store.Conversions(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, conversions)
}

func TestDatasetPermissionsReplace(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresDatasetStore(pool)
	ctx := context.Background()

	mustCreateDataset(t, store, models.Dataset{ID: "d1", Name: "reads"})

	roles, err := store.Roles(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, roles.AccessDatasetRoles)
	assert.NotNil(t, roles.AccessDatasetRoles)

	require.NoError(t, store.SetPermissions(ctx, "d1", models.UpdateDatasetPermissionsPayload{
		Action:    "set_permissions",
		AccessIDs: []string{"r1", "r2"},
		ManageIDs: []string{"r1"},
	}))

	roles, err = store.Roles(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, roles.AccessDatasetRoles)
	assert.Equal(t, []string{"r1"}, roles.ManageDatasetRoles)
	assert.Empty(t, roles.ModifyItemRoles)

	// A later call replaces the assignments instead of accumulating them.
	require.NoError(t, store.SetPermissions(ctx, "d1", models.UpdateDatasetPermissionsPayload{
		Action:    "set_permissions",
		ModifyIDs: []string{"r9"},
	}))
	roles, err = store.Roles(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, roles.AccessDatasetRoles)
	assert.Empty(t, roles.ManageDatasetRoles)
	assert.Equal(t, []string{"r9"}, roles.ModifyItemRoles)

	err = store.SetPermissions(ctx, "missing", models.UpdateDatasetPermissionsPayload{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkflowSourceMetadataRoundTrip(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresWorkflowStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.Workflow{
		ID:   "w1",
		Name: "variant calling",
		SourceMetadata: map[string]any{
			"url":    "https://example.org/workflows/variant-calling.ga",
			"trs_id": "#workflow/example/variant-calling",
		},
	}))
	require.NoError(t, store.Create(ctx, &models.Workflow{ID: "w2", Name: "no metadata"}))

	w, err := store.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "variant calling", w.Name)
	assert.Equal(t, "https://example.org/workflows/variant-calling.ga", w.SourceMetadata["url"])
	assert.Equal(t, "#workflow/example/variant-calling", w.SourceMetadata["trs_id"])

	w, err = store.Get(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, w.SourceMetadata)

	workflows, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
