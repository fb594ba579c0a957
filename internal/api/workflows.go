package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seqbench/seqbench/internal/repository"
	"github.com/seqbench/seqbench/pkg/models"
)

// WorkflowsHandler exposes the workflow import surface. Imported definitions
// carry source metadata describing where they came from; that provenance is
// what the workflow.source_metadata column stores.
type WorkflowsHandler struct {
	Repo repository.WorkflowStore
}

// NewWorkflowsHandler creates a new WorkflowsHandler.
func NewWorkflowsHandler(repo repository.WorkflowStore) *WorkflowsHandler {
	return &WorkflowsHandler{Repo: repo}
}

// RegisterRoutes mounts the workflow routes on the given group.
func (h *WorkflowsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/workflows", h.ListWorkflows)
	g.POST("/workflows", h.ImportWorkflow)
}

// ListWorkflows returns a list of all workflows.
// (GET /api/workflows)
func (h *WorkflowsHandler) ListWorkflows(c echo.Context) error {
	ctx := c.Request().Context()

	workflows, err := h.Repo.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflows)
}

// ImportWorkflowPayload is the body of an import request. SourceMetadata is
// optional provenance: a URL the definition was fetched from, an upload
// trace, or whatever the importing client knows about the origin.
type ImportWorkflowPayload struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	SourceMetadata map[string]any `json:"source_metadata"`
}

// ImportWorkflow stores an imported workflow definition.
// (POST /api/workflows)
func (h *WorkflowsHandler) ImportWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	var payload ImportWorkflowPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if payload.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	workflow := &models.Workflow{
		ID:             uuid.New().String(),
		Name:           payload.Name,
		Description:    payload.Description,
		SourceMetadata: payload.SourceMetadata,
	}
	if err := h.Repo.Create(ctx, workflow); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflow)
}
