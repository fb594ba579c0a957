package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/seqbench/seqbench/internal/objectstore"
	"github.com/seqbench/seqbench/internal/repository"
	"github.com/seqbench/seqbench/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// maxTextContentBytes bounds how much payload ContentAsText decodes.
const maxTextContentBytes = 64 * 1024

// Service implements DatasetsService over the dataset store and the object
// store.
type Service struct {
	store    repository.DatasetStore
	objects  *objectstore.Store
	log      Logger
	requests metric.Int64Counter
}

// NewService creates a new datasets Service.
func NewService(store repository.DatasetStore, objects *objectstore.Store, log Logger) *Service {
	meter := otel.Meter("github.com/seqbench/seqbench/internal/services")
	requests, err := meter.Int64Counter("datasets.requests",
		metric.WithDescription("Dataset service operations by name"))
	if err != nil {
		log.Warn("failed to create request counter", "error", err)
	}
	return &Service{store: store, objects: objects, log: log, requests: requests}
}

func (s *Service) count(ctx context.Context, op string) {
	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

// Index lists history contents, serialized per the given params.
func (s *Service) Index(ctx context.Context, historyID string, ser models.SerializationParams, filters models.FilterQueryParams) ([]map[string]any, error) {
	s.count(ctx, "index")
	datasets, err := s.store.List(ctx, historyID, filters)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(datasets))
	for _, d := range datasets {
		items = append(items, serializeDataset(d, ser))
	}
	return items, nil
}

// ShowStorage returns the object-store descriptor of a dataset.
func (s *Service) ShowStorage(ctx context.Context, datasetID string, source models.DatasetSource) (*models.DatasetStorageDetails, error) {
	s.count(ctx, "show_storage")
	d, err := s.store.Get(ctx, datasetID, source)
	if err != nil {
		return nil, err
	}
	return &models.DatasetStorageDetails{
		ObjectStoreID: s.objects.ID(),
		Name:          s.objects.Name(),
		Description:   "Disk-backed dataset storage",
		DatasetState:  d.State,
		FileSize:      d.FileSize,
	}, nil
}

// InheritanceChain returns the copy ancestry of a dataset, nearest first.
func (s *Service) InheritanceChain(ctx context.Context, datasetID string, source models.DatasetSource) (models.DatasetInheritanceChain, error) {
	s.count(ctx, "inheritance_chain")
	d, err := s.store.Get(ctx, datasetID, source)
	if err != nil {
		return nil, err
	}

	chain := models.DatasetInheritanceChain{}
	seen := map[string]bool{d.ID: true}
	for d.CopiedFromID != nil {
		parent, err := s.store.Get(ctx, *d.CopiedFromID, d.Source)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				break
			}
			return nil, err
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("dataset %s has a cyclic copy chain", datasetID)
		}
		seen[parent.ID] = true
		chain = append(chain, models.InheritanceEntry{
			ID:        parent.ID,
			Name:      parent.Name,
			Extension: parent.Extension,
		})
		d = parent
	}
	return chain, nil
}

// ContentAsText returns dataset content decoded as text, truncated to a
// preview-sized prefix.
func (s *Service) ContentAsText(ctx context.Context, datasetID string) (*models.DatasetTextContentDetails, error) {
	s.count(ctx, "content_as_text")
	d, err := s.store.Get(ctx, datasetID, models.DatasetSourceHDA)
	if err != nil {
		return nil, err
	}
	r, err := s.objects.Open(d.ID)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// Read one byte past the limit to detect truncation.
	data, err := io.ReadAll(io.LimitReader(r, maxTextContentBytes+1))
	if err != nil {
		return nil, err
	}
	truncated := len(data) > maxTextContentBytes
	if truncated {
		data = data[:maxTextContentBytes]
	}
	return &models.DatasetTextContentDetails{
		ItemData:  strings.ToValidUTF8(string(data), "�"),
		Truncated: truncated,
	}, nil
}

// ConvertedExt returns the dataset converted to ext, creating the conversion
// first if none exists. Creation is idempotent by extension: a later request
// for the same extension returns the same converted dataset.
func (s *Service) ConvertedExt(ctx context.Context, datasetID, ext string, ser models.SerializationParams) (map[string]any, error) {
	s.count(ctx, "converted_ext")
	d, err := s.store.Get(ctx, datasetID, models.DatasetSourceHDA)
	if err != nil {
		return nil, err
	}

	convertedID, err := s.store.Conversion(ctx, d.ID, ext)
	if err == nil {
		converted, err := s.store.Get(ctx, convertedID, models.DatasetSourceHDA)
		if err != nil {
			return nil, err
		}
		return serializeDataset(converted, ser), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	converted, err := s.createConversion(ctx, d, ext)
	if err != nil {
		return nil, err
	}
	return serializeDataset(converted, ser), nil
}

// createConversion materializes a derived dataset in the target format and
// records it.
func (s *Service) createConversion(ctx context.Context, d *models.Dataset, ext string) (*models.Dataset, error) {
	converted := &models.Dataset{
		ID:            uuid.New().String(),
		HistoryID:     d.HistoryID,
		Name:          fmt.Sprintf("%s (as %s)", d.Name, ext),
		Extension:     ext,
		State:         models.DatasetStateOK,
		Source:        models.DatasetSourceHDA,
		Visible:       false,
		ObjectStoreID: s.objects.ID(),
	}

	src, err := s.objects.Open(d.ID)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	size, err := s.objects.Put(converted.ID, src)
	if err != nil {
		return nil, err
	}
	converted.FileSize = size

	if err := s.store.Create(ctx, converted); err != nil {
		return nil, err
	}
	if err := s.store.AddConversion(ctx, d.ID, ext, converted.ID); err != nil {
		return nil, err
	}
	s.log.Info("created converted dataset", "dataset", d.ID, "ext", ext, "converted", converted.ID)
	return converted, nil
}

// Converted returns all existing conversions of a dataset. Conversions never
// requested are absent from the map.
func (s *Service) Converted(ctx context.Context, datasetID string) (models.ConvertedDatasetsMap, error) {
	s.count(ctx, "converted")
	if _, err := s.store.Get(ctx, datasetID, models.DatasetSourceHDA); err != nil {
		return nil, err
	}
	return s.store.Conversions(ctx, datasetID)
}

// UpdatePermissions replaces the dataset's role assignments and returns the
// result.
func (s *Service) UpdatePermissions(ctx context.Context, datasetID string, payload models.UpdateDatasetPermissionsPayload) (*models.DatasetAssociationRoles, error) {
	s.count(ctx, "update_permissions")
	if err := s.store.SetPermissions(ctx, datasetID, payload); err != nil {
		return nil, err
	}
	return s.store.Roles(ctx, datasetID)
}

// ExtraFiles lists the files belonging to a composite dataset.
func (s *Service) ExtraFiles(ctx context.Context, datasetID string) ([]models.ExtraFileEntry, error) {
	s.count(ctx, "extra_files")
	d, err := s.store.Get(ctx, datasetID, models.DatasetSourceHDA)
	if err != nil {
		return nil, err
	}
	return s.objects.ExtraFiles(d.ID)
}

// Display opens a stream over the dataset payload. Headers follow the
// preview flag: preview serves the content inline, anything else is sent as
// an attachment download. An "offset" in the extra parameters skips that
// many leading bytes, anything else undeclared is accepted and ignored.
func (s *Service) Display(ctx context.Context, datasetID, historyID string, preview bool, filename, toExt string, raw bool, extra url.Values) (io.ReadCloser, map[string]string, error) {
	s.count(ctx, "display")
	d, err := s.store.Get(ctx, datasetID, models.DatasetSourceHDA)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.objects.Open(d.ID)
	if err != nil {
		return nil, nil, err
	}
	if offset := extra.Get("offset"); offset != "" {
		n, err := strconv.ParseInt(offset, 10, 64)
		if err != nil || n < 0 {
			r.Close()
			return nil, nil, fmt.Errorf("invalid offset %q", offset)
		}
		if _, err := io.CopyN(io.Discard, r, n); err != nil && !errors.Is(err, io.EOF) {
			r.Close()
			return nil, nil, err
		}
	}
	for key := range extra {
		if key != "offset" {
			s.log.Debug("unused display parameter", "key", key)
		}
	}

	ext := d.Extension
	if toExt != "" && toExt != "data" {
		ext = toExt
	}
	headers := map[string]string{
		"Content-Type": contentTypeFor(ext, raw),
	}
	if !preview {
		name := filename
		if name == "" {
			name = fmt.Sprintf("seqbench_%s_%s.%s", d.ID, sanitizeFilename(d.Name), ext)
		}
		headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", name)
	}
	return r, headers, nil
}

// MetadataFile resolves a named metadata file to a filesystem path plus
// download headers.
func (s *Service) MetadataFile(ctx context.Context, datasetID, name string) (string, map[string]string, error) {
	s.count(ctx, "metadata_file")
	d, err := s.store.Get(ctx, datasetID, models.DatasetSourceHDA)
	if err != nil {
		return "", nil, err
	}
	path, err := s.objects.MetadataPath(d.ID, name)
	if err != nil {
		return "", nil, err
	}
	headers := map[string]string{
		"Content-Type": "application/octet-stream",
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("%s_%s", sanitizeFilename(d.Name), name)),
	}
	return path, headers, nil
}

// Show returns information about a dataset. The response shape depends on
// dataType; without one the serialized dataset is returned.
func (s *Service) Show(ctx context.Context, datasetID string, source models.DatasetSource, ser models.SerializationParams, dataType models.RequestDataType, extra url.Values) (any, error) {
	s.count(ctx, "show")
	d, err := s.store.Get(ctx, datasetID, source)
	if err != nil {
		return nil, err
	}
	for key := range extra {
		s.log.Debug("unused show parameter", "key", key)
	}

	switch dataType {
	case models.RequestDataTypeState:
		return map[string]any{"id": d.ID, "state": d.State}, nil
	case models.RequestDataTypeConvertedDatasetsState:
		conversions, err := s.store.Conversions(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		states := map[string]models.DatasetState{}
		for ext, convertedID := range conversions {
			converted, err := s.store.Get(ctx, convertedID, models.DatasetSourceHDA)
			if err != nil {
				return nil, err
			}
			states[ext] = converted.State
		}
		return states, nil
	case models.RequestDataTypeInUseState:
		return map[string]any{"id": d.ID, "in_use": !d.Deleted && !d.Purged}, nil
	default:
		return serializeDataset(d, ser), nil
	}
}

// contentTypeFor picks a response content type for the given extension. Raw
// downloads always go out as opaque bytes.
func contentTypeFor(ext string, raw bool) string {
	if raw {
		return "application/octet-stream"
	}
	switch ext {
	case "txt", "fasta", "fastq", "bed", "gff", "sam":
		return "text/plain; charset=utf-8"
	case "tabular", "tsv":
		return "text/tab-separated-values; charset=utf-8"
	case "csv":
		return "text/csv; charset=utf-8"
	case "json":
		return "application/json"
	case "html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// sanitizeFilename strips characters that are unsafe inside a download
// filename.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
