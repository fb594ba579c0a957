// Package api contains the HTTP handlers for the seqbench backend.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/seqbench/seqbench/internal/services"
	"github.com/seqbench/seqbench/pkg/models"
)

// DatasetsHandler routes dataset API operations to the datasets service. It
// holds no state of its own: each handler decodes declared parameters,
// delegates, and shapes the response. Errors from the service are returned
// as-is and mapped to status codes by the server's error handler.
type DatasetsHandler struct {
	Service services.DatasetsService
}

// NewDatasetsHandler creates a new DatasetsHandler.
func NewDatasetsHandler(service services.DatasetsService) *DatasetsHandler {
	return &DatasetsHandler{Service: service}
}

// RegisterRoutes mounts the dataset routes on the given group, which is
// expected to carry the /api prefix.
func (h *DatasetsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/datasets", h.Index)
	g.GET("/datasets/:dataset_id", h.Show)
	g.GET("/datasets/:dataset_id/storage", h.ShowStorage)
	g.GET("/datasets/:dataset_id/inheritance_chain", h.ShowInheritanceChain)
	g.GET("/datasets/:dataset_id/get_content_as_text", h.GetContentAsText)
	g.GET("/datasets/:dataset_id/converted", h.Converted)
	g.GET("/datasets/:dataset_id/converted/:ext", h.ConvertedExt)
	g.PUT("/datasets/:dataset_id/permissions", h.UpdatePermissions)
	g.GET("/histories/:history_id/contents/:history_content_id/extra_files", h.ExtraFiles)
	g.GET("/histories/:history_id/contents/:history_content_id/display", h.Display)
	g.GET("/histories/:history_id/contents/:history_content_id/metadata_file", h.GetMetadataFile)
}

// Index searches datasets, optionally restricted to one history.
// (GET /api/datasets)
func (h *DatasetsHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	filters, err := parseFilterQueryParams(c)
	if err != nil {
		return err
	}
	items, err := h.Service.Index(ctx, c.QueryParam("history_id"), parseSerializationParams(c), filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// ShowStorage displays user-facing storage details of the object store a
// dataset resides in.
// (GET /api/datasets/{dataset_id}/storage)
func (h *DatasetsHandler) ShowStorage(c echo.Context) error {
	ctx := c.Request().Context()

	source, err := sourceQueryParam(c)
	if err != nil {
		return err
	}
	details, err := h.Service.ShowStorage(ctx, c.Param("dataset_id"), source)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, details)
}

// ShowInheritanceChain returns the copy ancestry of a dataset. For internal
// use, this endpoint may change without warning.
// (GET /api/datasets/{dataset_id}/inheritance_chain)
func (h *DatasetsHandler) ShowInheritanceChain(c echo.Context) error {
	ctx := c.Request().Context()

	source, err := sourceQueryParam(c)
	if err != nil {
		return err
	}
	chain, err := h.Service.InheritanceChain(ctx, c.Param("dataset_id"), source)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chain)
}

// GetContentAsText returns dataset content as text.
// (GET /api/datasets/{dataset_id}/get_content_as_text)
func (h *DatasetsHandler) GetContentAsText(c echo.Context) error {
	ctx := c.Request().Context()

	details, err := h.Service.ContentAsText(ctx, c.Param("dataset_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, details)
}

// ConvertedExt returns the dataset converted to the given format, creating
// the conversion if none exists yet.
// (GET /api/datasets/{dataset_id}/converted/{ext})
func (h *DatasetsHandler) ConvertedExt(c echo.Context) error {
	ctx := c.Request().Context()

	converted, err := h.Service.ConvertedExt(ctx, c.Param("dataset_id"), c.Param("ext"), parseSerializationParams(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, converted)
}

// Converted returns a map of all existing converted datasets of a dataset,
// keyed by target extension.
// (GET /api/datasets/{dataset_id}/converted)
func (h *DatasetsHandler) Converted(c echo.Context) error {
	ctx := c.Request().Context()

	conversions, err := h.Service.Converted(ctx, c.Param("dataset_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conversions)
}

// UpdatePermissions sets the dataset's permissions to the given role ids.
// The payload is free-form to support the historical aliases for the role id
// lists; it is normalized before delegation.
// (PUT /api/datasets/{dataset_id}/permissions)
func (h *DatasetsHandler) UpdatePermissions(c echo.Context) error {
	ctx := c.Request().Context()

	payload := map[string]any{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	normalized, err := normalizePermissionsPayload(payload)
	if err != nil {
		return err
	}
	roles, err := h.Service.UpdatePermissions(ctx, c.Param("dataset_id"), normalized)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// ExtraFiles lists the extra files of a composite dataset.
// (GET /api/histories/{history_id}/contents/{history_content_id}/extra_files)
func (h *DatasetsHandler) ExtraFiles(c echo.Context) error {
	ctx := c.Request().Context()

	entries, err := h.Service.ExtraFiles(ctx, c.Param("history_content_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// Display streams dataset content. Query parameters beyond the declared ones
// are passed through to the service untouched.
// (GET /api/histories/{history_id}/contents/{history_content_id}/display)
func (h *DatasetsHandler) Display(c echo.Context) error {
	ctx := c.Request().Context()

	preview, err := boolQueryParam(c, "preview")
	if err != nil {
		return err
	}
	raw, err := boolQueryParam(c, "raw")
	if err != nil {
		return err
	}
	extra := residualQueryParams(c, "preview", "filename", "to_ext", "raw")

	stream, headers, err := h.Service.Display(ctx,
		c.Param("history_content_id"), c.Param("history_id"),
		preview, c.QueryParam("filename"), c.QueryParam("to_ext"), raw, extra)
	if err != nil {
		return err
	}
	defer stream.Close()

	contentType := headers["Content-Type"]
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	for key, value := range headers {
		if key == "Content-Type" {
			continue
		}
		c.Response().Header().Set(key, value)
	}
	return c.Stream(http.StatusOK, contentType, stream)
}

// GetMetadataFile returns the named metadata file associated with a dataset.
// (GET /api/histories/{history_id}/contents/{history_content_id}/metadata_file)
func (h *DatasetsHandler) GetMetadataFile(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.QueryParam("metadata_file")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "metadata_file is required")
	}
	path, headers, err := h.Service.MetadataFile(ctx, c.Param("history_content_id"), name)
	if err != nil {
		return err
	}
	for key, value := range headers {
		c.Response().Header().Set(key, value)
	}
	return c.File(path)
}

// Show displays information about and/or content of a dataset. The response
// shape varies with data_type; undeclared query parameters are passed
// through to the service untouched.
// (GET /api/datasets/{dataset_id})
func (h *DatasetsHandler) Show(c echo.Context) error {
	ctx := c.Request().Context()

	source, err := sourceQueryParam(c)
	if err != nil {
		return err
	}
	var dataType models.RequestDataType
	if raw := c.QueryParam("data_type"); raw != "" {
		dataType = models.RequestDataType(raw)
		if !dataType.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid data_type: "+raw)
		}
	}
	declared := append([]string{"hda_ldda", "data_type"}, serializationKeys...)
	extra := residualQueryParams(c, declared...)

	result, err := h.Service.Show(ctx, c.Param("dataset_id"), source, parseSerializationParams(c), dataType, extra)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
