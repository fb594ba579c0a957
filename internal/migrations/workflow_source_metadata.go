package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Adds workflow.source_metadata, a nullable structured document recording the
// provenance of an imported workflow definition. The add tolerates a column
// left behind by a partially applied prior run.
func init() {
	register(Revision{
		ID:           "b182f655505f",
		DownRevision: "e7b6dcb09efd",
		Upgrade: func(ctx context.Context, tx pgx.Tx, log Logger) error {
			return addColumnIfAbsent(ctx, tx, log, "workflow", "source_metadata", "JSONB")
		},
		Downgrade: func(ctx context.Context, tx pgx.Tx, _ Logger) error {
			return dropColumn(ctx, tx, "workflow", "source_metadata")
		},
	})
}
