// Command seed populates a development database with sample histories,
// datasets and workflows so the API has something to serve out of the box.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/logging"
	"github.com/seqbench/seqbench/internal/migrations"
	"github.com/seqbench/seqbench/internal/objectstore"
	"github.com/seqbench/seqbench/internal/repository"
	"github.com/seqbench/seqbench/pkg/models"
)

const sampleFastq = `@read1
ACGTACGTACGTACGT
+
IIIIIIIIIIIIIIII
@read2
TTGGCCAATTGGCCAA
+
IIIIIIIIIIIIIIII
`

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := migrations.NewRunner(pool, logger).Up(ctx); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	objects, err := objectstore.New(cfg.ObjectStore.ID, cfg.ObjectStore.Name, cfg.ObjectStore.Root)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	datasetStore := repository.NewPostgresDatasetStore(pool)
	workflowStore := repository.NewPostgresWorkflowStore(pool)

	datasets := []struct {
		ID      string
		Name    string
		Ext     string
		Payload string
	}{
		{"seed-reads-1", "sample reads (lane 1)", "fastq", sampleFastq},
		{"seed-reads-2", "sample reads (lane 2)", "fastq", sampleFastq},
		{"seed-regions", "target regions", "bed", "chr1\t100\t200\tregion1\nchr2\t300\t400\tregion2\n"},
	}

	for _, d := range datasets {
		if _, err := datasetStore.Get(ctx, d.ID, models.DatasetSourceHDA); err == nil {
			logger.Info("Skipping existing dataset", "id", d.ID)
			continue
		}

		size, err := objects.Put(d.ID, strings.NewReader(d.Payload))
		if err != nil {
			log.Fatalf("Failed to store payload for %s: %v", d.ID, err)
		}
		dataset := &models.Dataset{
			ID:            d.ID,
			HistoryID:     "seed-history",
			Name:          d.Name,
			Extension:     d.Ext,
			State:         models.DatasetStateOK,
			Source:        models.DatasetSourceHDA,
			Visible:       true,
			FileSize:      size,
			ObjectStoreID: objects.ID(),
		}
		if err := datasetStore.Create(ctx, dataset); err != nil {
			log.Printf("Failed to create dataset %s: %v", d.ID, err)
			continue
		}
		logger.Info("Seeded dataset", "id", d.ID, "name", d.Name)
	}

	existing, err := workflowStore.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing workflows: %v", err)
	}
	existingNames := make(map[string]bool)
	for _, w := range existing {
		existingNames[w.Name] = true
	}

	workflows := []*models.Workflow{
		{
			ID:          "seed-wf-qc",
			Name:        "Read quality control",
			Description: "Trims adapters and filters low-quality reads.",
			SourceMetadata: map[string]any{
				"url": "https://example.org/workflows/read-qc.ga",
			},
		},
		{
			ID:          "seed-wf-variants",
			Name:        "Variant calling",
			Description: "Aligns reads and calls variants against a reference.",
			SourceMetadata: map[string]any{
				"trs_server": "workflowhub.eu",
				"trs_id":     "#workflow/example/variant-calling",
			},
		},
	}

	for _, w := range workflows {
		if existingNames[w.Name] {
			logger.Info("Skipping existing workflow", "name", w.Name)
			continue
		}
		if err := workflowStore.Create(ctx, w); err != nil {
			log.Printf("Failed to create workflow %s: %v", w.Name, err)
			continue
		}
		logger.Info("Seeded workflow", "name", w.Name, "id", w.ID)
	}
	logger.Info("Seeding complete!")
}
