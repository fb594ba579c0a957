package repository

import (
	"context"
	"errors"

	"github.com/seqbench/seqbench/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repository: not found")

// DatasetStore is the persistence boundary for datasets, their conversions
// and their permission assignments.
type DatasetStore interface {
	// List returns datasets, optionally restricted to one history, with the
	// generic attribute filters and paging applied.
	List(ctx context.Context, historyID string, filters models.FilterQueryParams) ([]*models.Dataset, error)
	// Get retrieves a dataset by its encoded id and source kind.
	Get(ctx context.Context, id string, source models.DatasetSource) (*models.Dataset, error)
	// Create persists a new dataset record.
	Create(ctx context.Context, dataset *models.Dataset) error
	// Conversion returns the id of the dataset converted to ext, or
	// ErrNotFound when no conversion exists.
	Conversion(ctx context.Context, datasetID, ext string) (string, error)
	// Conversions returns all existing conversions of a dataset.
	Conversions(ctx context.Context, datasetID string) (models.ConvertedDatasetsMap, error)
	// AddConversion records a converted dataset for the given extension.
	AddConversion(ctx context.Context, datasetID, ext, convertedID string) error
	// Roles returns the role assignments currently attached to a dataset.
	Roles(ctx context.Context, datasetID string) (*models.DatasetAssociationRoles, error)
	// SetPermissions replaces the role assignments of a dataset.
	SetPermissions(ctx context.Context, datasetID string, payload models.UpdateDatasetPermissionsPayload) error
}

// WorkflowStore is the persistence boundary for workflow definitions.
type WorkflowStore interface {
	// List returns all stored workflows.
	List(ctx context.Context) ([]*models.Workflow, error)
	// Get retrieves a workflow by id.
	Get(ctx context.Context, id string) (*models.Workflow, error)
	// Create persists a new workflow, including its source metadata.
	Create(ctx context.Context, workflow *models.Workflow) error
}
