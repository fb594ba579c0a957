package models

import (
	"time"
)

// Workflow represents a stored workflow definition. SourceMetadata captures
// the provenance of how the definition was obtained (imported from a URL,
// derived from a file upload) and is absent for workflows authored in place.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
	CreatedAt      time.Time      `json:"create_time"`
	UpdatedAt      time.Time      `json:"update_time"`
}
