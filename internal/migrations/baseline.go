package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Base revision: the core tables the API serves from.
func init() {
	register(Revision{
		ID:           "e7b6dcb09efd",
		DownRevision: "",
		Upgrade:      baselineUpgrade,
		Downgrade:    baselineDowngrade,
	})
}

func baselineUpgrade(ctx context.Context, tx pgx.Tx, _ Logger) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE workflow (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			create_time TIMESTAMPTZ NOT NULL DEFAULT now(),
			update_time TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE dataset (
			id TEXT PRIMARY KEY,
			history_id TEXT,
			name TEXT NOT NULL,
			extension TEXT NOT NULL DEFAULT 'data',
			state TEXT NOT NULL DEFAULT 'ok',
			src TEXT NOT NULL DEFAULT 'hda',
			deleted BOOLEAN NOT NULL DEFAULT false,
			purged BOOLEAN NOT NULL DEFAULT false,
			visible BOOLEAN NOT NULL DEFAULT true,
			file_size BIGINT NOT NULL DEFAULT 0,
			copied_from_id TEXT REFERENCES dataset (id),
			object_store_id TEXT,
			create_time TIMESTAMPTZ NOT NULL DEFAULT now(),
			update_time TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX ix_dataset_history_id ON dataset (history_id);

		CREATE TABLE dataset_conversion (
			dataset_id TEXT NOT NULL REFERENCES dataset (id),
			extension TEXT NOT NULL,
			converted_id TEXT NOT NULL REFERENCES dataset (id),
			PRIMARY KEY (dataset_id, extension)
		);

		CREATE TABLE dataset_permission (
			dataset_id TEXT NOT NULL REFERENCES dataset (id),
			action TEXT NOT NULL,
			role_id TEXT NOT NULL,
			PRIMARY KEY (dataset_id, action, role_id)
		);
	`)
	return err
}

func baselineDowngrade(ctx context.Context, tx pgx.Tx, _ Logger) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE dataset_permission;
		DROP TABLE dataset_conversion;
		DROP TABLE dataset;
		DROP TABLE workflow;
	`)
	return err
}
