package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seqbench/seqbench/internal/repository"
)

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "seqbench",
		Version:   "1.0.0",
	})
}

// ProblemDetails represents an RFC 7807 Problem Details response.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewHTTPErrorHandler returns the server-wide error handler. Handlers return
// service errors unchanged; this is where they become status codes: missing
// records and files map to 404, explicit HTTP errors keep their code, and
// everything else is a 500.
func NewHTTPErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		detail := err.Error()
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			status = httpErr.Code
			detail = fmt.Sprintf("%v", httpErr.Message)
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, os.ErrNotExist):
			status = http.StatusNotFound
			detail = "resource not found"
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
			detail = "internal server error"
		} else {
			log.Debug("request rejected", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		problem := ProblemDetails{
			Type:     "about:blank",
			Title:    http.StatusText(status),
			Status:   status,
			Detail:   detail,
			Instance: c.Request().URL.Path,
		}
		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		if jsonErr := c.JSON(status, problem); jsonErr != nil {
			log.Error("failed to write error response", "error", jsonErr)
		}
	}
}
