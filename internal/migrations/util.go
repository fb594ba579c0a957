package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE raised by postgres when adding a column that already exists.
const codeDuplicateColumn = "42701"

// addColumnIfAbsent adds a column to a table, treating an already existing
// column as success so a partially applied prior run can be repeated safely.
// Any other database error propagates and aborts the migration. The column
// add runs under a savepoint so the recovered failure does not poison the
// enclosing revision transaction.
func addColumnIfAbsent(ctx context.Context, tx pgx.Tx, log Logger, table, column, definition string) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	_, err = sp.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil {
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeDuplicateColumn {
			log.Warn("column already exists, skipping add", "table", table, "column", column)
			return nil
		}
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return sp.Commit(ctx)
}

// dropColumn drops a column unconditionally. Reverting a revision that was
// never applied is the runner's responsibility to avoid.
func dropColumn(ctx context.Context, tx pgx.Tx, table, column string) error {
	_, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column))
	if err != nil {
		return fmt.Errorf("drop column %s.%s: %w", table, column, err)
	}
	return nil
}
