package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seqbench/seqbench/pkg/models"
)

// PostgresDatasetStore is a PostgreSQL implementation of the DatasetStore
// interface.
type PostgresDatasetStore struct {
	db *pgxpool.Pool
}

// NewPostgresDatasetStore creates a new PostgresDatasetStore.
func NewPostgresDatasetStore(db *pgxpool.Pool) *PostgresDatasetStore {
	return &PostgresDatasetStore{db: db}
}

const datasetColumns = `id, history_id, name, extension, state, src, deleted, purged, visible,
	file_size, copied_from_id, object_store_id, create_time, update_time`

func scanDataset(row pgx.Row) (*models.Dataset, error) {
	var d models.Dataset
	var historyID, objectStoreID *string
	err := row.Scan(&d.ID, &historyID, &d.Name, &d.Extension, &d.State, &d.Source,
		&d.Deleted, &d.Purged, &d.Visible, &d.FileSize, &d.CopiedFromID,
		&objectStoreID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if historyID != nil {
		d.HistoryID = *historyID
	}
	if objectStoreID != nil {
		d.ObjectStoreID = *objectStoreID
	}
	return &d, nil
}

// filterableColumns maps the filterable attribute names accepted in q= pairs
// to their columns. Anything else is rejected up front.
var filterableColumns = map[string]string{
	"name":      "name",
	"extension": "extension",
	"state":     "state",
	"deleted":   "deleted",
	"visible":   "visible",
}

// buildFilters translates q/qv attribute-operator pairs into a WHERE clause.
// Supported forms are "attr-eq" and "attr-contains".
func buildFilters(filters models.FilterQueryParams, args []any) (string, []any, error) {
	if len(filters.Q) != len(filters.Qv) {
		return "", nil, fmt.Errorf("mismatched filter pairs: %d attributes, %d values", len(filters.Q), len(filters.Qv))
	}
	var clauses []string
	for i, q := range filters.Q {
		attr, op := q, "eq"
		if idx := strings.LastIndex(q, "-"); idx > 0 {
			attr, op = q[:idx], q[idx+1:]
		}
		column, ok := filterableColumns[attr]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter attribute %q", attr)
		}
		switch op {
		case "eq":
			args = append(args, filters.Qv[i])
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
		case "contains":
			args = append(args, "%"+filters.Qv[i]+"%")
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
		default:
			return "", nil, fmt.Errorf("unknown filter operator %q", op)
		}
	}
	if len(clauses) == 0 {
		return "", args, nil
	}
	return " AND " + strings.Join(clauses, " AND "), args, nil
}

// List returns datasets, optionally restricted to one history.
func (s *PostgresDatasetStore) List(ctx context.Context, historyID string, filters models.FilterQueryParams) ([]*models.Dataset, error) {
	args := []any{historyID}
	where, args, err := buildFilters(filters, args)
	if err != nil {
		return nil, err
	}

	order := "create_time DESC"
	switch filters.Order {
	case "", "create_time-dsc":
	case "create_time-asc":
		order = "create_time ASC"
	case "name-asc":
		order = "name ASC"
	case "name-dsc":
		order = "name DESC"
	default:
		return nil, fmt.Errorf("unknown order %q", filters.Order)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM dataset WHERE ($1 = '' OR history_id = $1)%s ORDER BY %s",
		datasetColumns, where, order,
	)
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// Get retrieves a dataset by its encoded id and source kind.
func (s *PostgresDatasetStore) Get(ctx context.Context, id string, source models.DatasetSource) (*models.Dataset, error) {
	query := fmt.Sprintf("SELECT %s FROM dataset WHERE id = $1 AND src = $2", datasetColumns)
	d, err := scanDataset(s.db.QueryRow(ctx, query, id, string(source)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// Create persists a new dataset record.
func (s *PostgresDatasetStore) Create(ctx context.Context, d *models.Dataset) error {
	var historyID, objectStoreID *string
	if d.HistoryID != "" {
		historyID = &d.HistoryID
	}
	if d.ObjectStoreID != "" {
		objectStoreID = &d.ObjectStoreID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO dataset (id, history_id, name, extension, state, src, deleted, purged,
			visible, file_size, copied_from_id, object_store_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, historyID, d.Name, d.Extension, string(d.State), string(d.Source),
		d.Deleted, d.Purged, d.Visible, d.FileSize, d.CopiedFromID, objectStoreID)
	return err
}

// Conversion returns the id of the dataset converted to ext.
func (s *PostgresDatasetStore) Conversion(ctx context.Context, datasetID, ext string) (string, error) {
	var convertedID string
	err := s.db.QueryRow(ctx,
		"SELECT converted_id FROM dataset_conversion WHERE dataset_id = $1 AND extension = $2",
		datasetID, ext).Scan(&convertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return convertedID, err
}

// Conversions returns all existing conversions of a dataset.
func (s *PostgresDatasetStore) Conversions(ctx context.Context, datasetID string) (models.ConvertedDatasetsMap, error) {
	rows, err := s.db.Query(ctx,
		"SELECT extension, converted_id FROM dataset_conversion WHERE dataset_id = $1", datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := models.ConvertedDatasetsMap{}
	for rows.Next() {
		var ext, convertedID string
		if err := rows.Scan(&ext, &convertedID); err != nil {
			return nil, err
		}
		result[ext] = convertedID
	}
	return result, rows.Err()
}

// AddConversion records a converted dataset for the given extension.
func (s *PostgresDatasetStore) AddConversion(ctx context.Context, datasetID, ext, convertedID string) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO dataset_conversion (dataset_id, extension, converted_id) VALUES ($1, $2, $3)",
		datasetID, ext, convertedID)
	return err
}

// Roles returns the role assignments currently attached to a dataset.
func (s *PostgresDatasetStore) Roles(ctx context.Context, datasetID string) (*models.DatasetAssociationRoles, error) {
	rows, err := s.db.Query(ctx,
		"SELECT action, role_id FROM dataset_permission WHERE dataset_id = $1 ORDER BY role_id",
		datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := &models.DatasetAssociationRoles{
		AccessDatasetRoles: []string{},
		ManageDatasetRoles: []string{},
		ModifyItemRoles:    []string{},
	}
	for rows.Next() {
		var action, roleID string
		if err := rows.Scan(&action, &roleID); err != nil {
			return nil, err
		}
		switch action {
		case "access":
			roles.AccessDatasetRoles = append(roles.AccessDatasetRoles, roleID)
		case "manage":
			roles.ManageDatasetRoles = append(roles.ManageDatasetRoles, roleID)
		case "modify":
			roles.ModifyItemRoles = append(roles.ModifyItemRoles, roleID)
		}
	}
	return roles, rows.Err()
}

// SetPermissions replaces the role assignments of a dataset.
func (s *PostgresDatasetStore) SetPermissions(ctx context.Context, datasetID string, payload models.UpdateDatasetPermissionsPayload) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM dataset WHERE id = $1)", datasetID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, "DELETE FROM dataset_permission WHERE dataset_id = $1", datasetID); err != nil {
		return err
	}
	insert := func(action string, roleIDs []string) error {
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx,
				"INSERT INTO dataset_permission (dataset_id, action, role_id) VALUES ($1, $2, $3)",
				datasetID, action, roleID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert("access", payload.AccessIDs); err != nil {
		return err
	}
	if err := insert("manage", payload.ManageIDs); err != nil {
		return err
	}
	if err := insert("modify", payload.ModifyIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
