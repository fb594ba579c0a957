package services

import (
	"context"
	"io"
	"net/url"

	"github.com/seqbench/seqbench/pkg/models"
)

// DatasetsService is the collaborator the dataset API routes delegate to.
// One method per exposed operation; handlers hold no business logic of their
// own, so the whole surface can be substituted with a test double.
type DatasetsService interface {
	// Index lists history contents, serialized per the given params.
	Index(ctx context.Context, historyID string, ser models.SerializationParams, filters models.FilterQueryParams) ([]map[string]any, error)
	// ShowStorage returns the object-store descriptor of a dataset.
	ShowStorage(ctx context.Context, datasetID string, source models.DatasetSource) (*models.DatasetStorageDetails, error)
	// InheritanceChain returns the copy ancestry of a dataset, nearest first.
	InheritanceChain(ctx context.Context, datasetID string, source models.DatasetSource) (models.DatasetInheritanceChain, error)
	// ContentAsText returns dataset content decoded as text.
	ContentAsText(ctx context.Context, datasetID string) (*models.DatasetTextContentDetails, error)
	// ConvertedExt returns the dataset converted to ext, creating the
	// conversion first if none exists.
	ConvertedExt(ctx context.Context, datasetID, ext string, ser models.SerializationParams) (map[string]any, error)
	// Converted returns the extension to converted-dataset-id map of all
	// existing conversions.
	Converted(ctx context.Context, datasetID string) (models.ConvertedDatasetsMap, error)
	// UpdatePermissions replaces the dataset's role assignments and returns
	// the result.
	UpdatePermissions(ctx context.Context, datasetID string, payload models.UpdateDatasetPermissionsPayload) (*models.DatasetAssociationRoles, error)
	// ExtraFiles lists the files belonging to a composite dataset.
	ExtraFiles(ctx context.Context, datasetID string) ([]models.ExtraFileEntry, error)
	// Display opens a stream over the dataset payload together with the
	// response headers to relay. Undeclared query parameters arrive in extra.
	Display(ctx context.Context, datasetID, historyID string, preview bool, filename, toExt string, raw bool, extra url.Values) (io.ReadCloser, map[string]string, error)
	// MetadataFile resolves a named metadata file to a filesystem path plus
	// response headers.
	MetadataFile(ctx context.Context, datasetID, name string) (string, map[string]string, error)
	// Show returns information about a dataset. The response shape depends on
	// dataType; undeclared query parameters arrive in extra.
	Show(ctx context.Context, datasetID string, source models.DatasetSource, ser models.SerializationParams, dataType models.RequestDataType, extra url.Values) (any, error)
}
