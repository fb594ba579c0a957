package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seqbench/seqbench/pkg/models"
)

// PostgresWorkflowStore is a PostgreSQL implementation of the WorkflowStore
// interface.
type PostgresWorkflowStore struct {
	db *pgxpool.Pool
}

// NewPostgresWorkflowStore creates a new PostgresWorkflowStore.
func NewPostgresWorkflowStore(db *pgxpool.Pool) *PostgresWorkflowStore {
	return &PostgresWorkflowStore{db: db}
}

// List returns all stored workflows.
func (s *PostgresWorkflowStore) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, source_metadata, create_time, update_time
		FROM workflow ORDER BY create_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// Get retrieves a workflow by id.
func (s *PostgresWorkflowStore) Get(ctx context.Context, id string) (*models.Workflow, error) {
	w, err := scanWorkflow(s.db.QueryRow(ctx, `
		SELECT id, name, description, source_metadata, create_time, update_time
		FROM workflow WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// Create persists a new workflow, including its source metadata.
func (s *PostgresWorkflowStore) Create(ctx context.Context, w *models.Workflow) error {
	var meta []byte
	if w.SourceMetadata != nil {
		var err error
		meta, err = json.Marshal(w.SourceMetadata)
		if err != nil {
			return err
		}
	}
	var description *string
	if w.Description != "" {
		description = &w.Description
	}
	_, err := s.db.Exec(ctx,
		"INSERT INTO workflow (id, name, description, source_metadata) VALUES ($1, $2, $3, $4)",
		w.ID, w.Name, description, meta)
	return err
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var w models.Workflow
	var description *string
	var meta []byte
	if err := row.Scan(&w.ID, &w.Name, &description, &meta, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if description != nil {
		w.Description = *description
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &w.SourceMetadata); err != nil {
			return nil, err
		}
	}
	return &w, nil
}
