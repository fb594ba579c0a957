package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/internal/repository"
	"github.com/seqbench/seqbench/pkg/models"
)

// stubService records every delegated call so tests can assert that the
// routing layer decodes parameters correctly and loses nothing.
type stubService struct {
	historyID string
	ser       models.SerializationParams
	filters   models.FilterQueryParams
	datasetID string
	source    models.DatasetSource
	ext       string
	dataType  models.RequestDataType
	payload   models.UpdateDatasetPermissionsPayload
	preview   bool
	filename  string
	toExt     string
	raw       bool
	extra     url.Values

	err          error
	displayBody  string
	headers      map[string]string
	metadataPath string
}

func (s *stubService) Index(_ context.Context, historyID string, ser models.SerializationParams, filters models.FilterQueryParams) ([]map[string]any, error) {
	s.historyID, s.ser, s.filters = historyID, ser, filters
	return []map[string]any{{"id": "d1"}}, s.err
}

func (s *stubService) ShowStorage(_ context.Context, datasetID string, source models.DatasetSource) (*models.DatasetStorageDetails, error) {
	s.datasetID, s.source = datasetID, source
	if s.err != nil {
		return nil, s.err
	}
	return &models.DatasetStorageDetails{ObjectStoreID: "primary"}, nil
}

func (s *stubService) InheritanceChain(_ context.Context, datasetID string, source models.DatasetSource) (models.DatasetInheritanceChain, error) {
	s.datasetID, s.source = datasetID, source
	return models.DatasetInheritanceChain{}, s.err
}

func (s *stubService) ContentAsText(_ context.Context, datasetID string) (*models.DatasetTextContentDetails, error) {
	s.datasetID = datasetID
	if s.err != nil {
		return nil, s.err
	}
	return &models.DatasetTextContentDetails{ItemData: "content"}, nil
}

func (s *stubService) ConvertedExt(_ context.Context, datasetID, ext string, ser models.SerializationParams) (map[string]any, error) {
	s.datasetID, s.ext, s.ser = datasetID, ext, ser
	return map[string]any{"id": "converted"}, s.err
}

func (s *stubService) Converted(_ context.Context, datasetID string) (models.ConvertedDatasetsMap, error) {
	s.datasetID = datasetID
	return models.ConvertedDatasetsMap{"tabular": "c1"}, s.err
}

func (s *stubService) UpdatePermissions(_ context.Context, datasetID string, payload models.UpdateDatasetPermissionsPayload) (*models.DatasetAssociationRoles, error) {
	s.datasetID, s.payload = datasetID, payload
	if s.err != nil {
		return nil, s.err
	}
	return &models.DatasetAssociationRoles{AccessDatasetRoles: payload.AccessIDs}, nil
}

func (s *stubService) ExtraFiles(_ context.Context, datasetID string) ([]models.ExtraFileEntry, error) {
	s.datasetID = datasetID
	return []models.ExtraFileEntry{{Class: "File", Path: "part1.dat"}}, s.err
}

func (s *stubService) Display(_ context.Context, datasetID, historyID string, preview bool, filename, toExt string, raw bool, extra url.Values) (io.ReadCloser, map[string]string, error) {
	s.datasetID, s.historyID = datasetID, historyID
	s.preview, s.filename, s.toExt, s.raw, s.extra = preview, filename, toExt, raw, extra
	if s.err != nil {
		return nil, nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.displayBody)), s.headers, nil
}

func (s *stubService) MetadataFile(_ context.Context, datasetID, name string) (string, map[string]string, error) {
	s.datasetID, s.filename = datasetID, name
	if s.err != nil {
		return "", nil, s.err
	}
	return s.metadataPath, s.headers, nil
}

func (s *stubService) Show(_ context.Context, datasetID string, source models.DatasetSource, ser models.SerializationParams, dataType models.RequestDataType, extra url.Values) (any, error) {
	s.datasetID, s.source, s.ser, s.dataType, s.extra = datasetID, source, ser, dataType, extra
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"id": datasetID}, nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

func newTestServer(stub *stubService) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(noopLogger{})
	NewDatasetsHandler(stub).RegisterRoutes(e.Group("/api"))
	return e
}

func doRequest(e *echo.Echo, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIndexDecodesParams(t *testing.T) {
	stub := &stubService{}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet,
		"/api/datasets?history_id=h1&view=detailed&keys=id,name&q=name-contains&qv=reads&offset=10&limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "h1", stub.historyID)
	assert.Equal(t, "detailed", stub.ser.View)
	assert.Equal(t, []string{"id", "name"}, stub.ser.Keys)
	assert.Equal(t, []string{"name-contains"}, stub.filters.Q)
	assert.Equal(t, []string{"reads"}, stub.filters.Qv)
	assert.Equal(t, 10, stub.filters.Offset)
	assert.Equal(t, 5, stub.filters.Limit)
	assert.JSONEq(t, `[{"id":"d1"}]`, rec.Body.String())
}

func TestIndexRejectsBadOffset(t *testing.T) {
	e := newTestServer(&stubService{})

	rec := doRequest(e, http.MethodGet, "/api/datasets?offset=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowStorageDefaultsSource(t *testing.T) {
	stub := &stubService{}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet, "/api/datasets/abc/storage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", stub.datasetID)
	assert.Equal(t, models.DatasetSourceHDA, stub.source)

	rec = doRequest(e, http.MethodGet, "/api/datasets/abc/storage?hda_ldda=ldda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DatasetSourceLDDA, stub.source)

	rec = doRequest(e, http.MethodGet, "/api/datasets/abc/storage?hda_ldda=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowPassesResidualParamsThrough(t *testing.T) {
	stub := &stubService{}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet,
		"/api/datasets/abc?hda_ldda=ldda&data_type=state&view=detailed&foo=bar&chunk=7", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DatasetSourceLDDA, stub.source)
	assert.Equal(t, models.RequestDataTypeState, stub.dataType)
	// Declared parameters must not leak into the residue, undeclared ones
	// must arrive unmodified.
	assert.Equal(t, url.Values{"foo": {"bar"}, "chunk": {"7"}}, stub.extra)
}

func TestShowRejectsUnknownDataType(t *testing.T) {
	e := newTestServer(&stubService{})

	rec := doRequest(e, http.MethodGet, "/api/datasets/abc?data_type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertedExtRoutes(t *testing.T) {
	stub := &stubService{}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet, "/api/datasets/abc/converted/tabular?view=detailed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", stub.datasetID)
	assert.Equal(t, "tabular", stub.ext)
	assert.Equal(t, "detailed", stub.ser.View)

	rec = doRequest(e, http.MethodGet, "/api/datasets/abc/converted", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tabular":"c1"}`, rec.Body.String())
}

func TestUpdatePermissionsNormalizesAliases(t *testing.T) {
	stub := &stubService{}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodPut, "/api/datasets/abc/permissions",
		strings.NewReader(`{"action":"set_permissions","access_ids[]":["r1","r2"],"manage_ids[]":["r3"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	bracketed := stub.payload

	rec = doRequest(e, http.MethodPut, "/api/datasets/abc/permissions",
		strings.NewReader(`{"action":"set_permissions","access":["r1","r2"],"manage":["r3"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	plain := stub.payload

	// Both payload shapes must normalize to the same canonical structure.
	assert.Equal(t, bracketed, plain)
	assert.Equal(t, []string{"r1", "r2"}, plain.AccessIDs)
	assert.Equal(t, []string{"r3"}, plain.ManageIDs)
	assert.Empty(t, plain.ModifyIDs)
}

func TestDisplayStreamsAndRelaysHeaders(t *testing.T) {
	stub := &stubService{
		displayBody: "ACGTACGT",
		headers: map[string]string{
			"Content-Type":        "text/plain; charset=utf-8",
			"Content-Disposition": `attachment; filename="reads.txt"`,
		},
	}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet,
		"/api/histories/h1/contents/d1/display?preview=false&to_ext=txt&foo=bar", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ACGTACGT", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="reads.txt"`, rec.Header().Get("Content-Disposition"))

	assert.Equal(t, "d1", stub.datasetID)
	assert.Equal(t, "h1", stub.historyID)
	assert.False(t, stub.preview)
	assert.Equal(t, "txt", stub.toExt)
	assert.Equal(t, url.Values{"foo": {"bar"}}, stub.extra)
}

func TestDisplayParsesPreviewAndRaw(t *testing.T) {
	stub := &stubService{headers: map[string]string{}}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet,
		"/api/histories/h1/contents/d1/display?preview=true&raw=true", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.preview)
	assert.True(t, stub.raw)
	assert.Empty(t, stub.extra)

	rec = doRequest(e, http.MethodGet, "/api/histories/h1/contents/d1/display?preview=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMetadataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.bai")
	require.NoError(t, os.WriteFile(path, []byte("index-bytes"), 0o644))

	stub := &stubService{
		metadataPath: path,
		headers: map[string]string{
			"Content-Disposition": `attachment; filename="reads_bai"`,
		},
	}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet,
		"/api/histories/h1/contents/d1/metadata_file?metadata_file=bai", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "index-bytes", rec.Body.String())
	assert.Equal(t, `attachment; filename="reads_bai"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "d1", stub.datasetID)
	assert.Equal(t, "bai", stub.filename)
}

func TestGetMetadataFileRequiresName(t *testing.T) {
	e := newTestServer(&stubService{})

	rec := doRequest(e, http.MethodGet, "/api/histories/h1/contents/d1/metadata_file", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtraFilesRoutes(t *testing.T) {
	stub := &stubService{}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet, "/api/histories/h1/contents/d1/extra_files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "d1", stub.datasetID)
	assert.JSONEq(t, `[{"class":"File","path":"part1.dat"}]`, rec.Body.String())
}

func TestServiceErrorsMapToProblemResponses(t *testing.T) {
	stub := &stubService{err: repository.ErrNotFound}
	e := newTestServer(stub)

	rec := doRequest(e, http.MethodGet, "/api/datasets/missing/storage", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))

	stub.err = io.ErrUnexpectedEOF
	rec = doRequest(e, http.MethodGet, "/api/datasets/broken/storage", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")
}
