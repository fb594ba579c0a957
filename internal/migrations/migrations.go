// Package migrations provides the versioned schema migration system for the
// seqbench database.
//
// Each revision carries an opaque identifier and a pointer to its direct
// predecessor. The Runner linearizes the registered revisions by following
// those pointers from the base revision and applies or reverts them in order,
// recording applied revisions in the schema_revisions table. A revision's
// upgrade or downgrade runs in a single transaction together with its
// bookkeeping row, so a revision either applies completely or not at all.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Revision is a single reversible schema change. DownRevision names the
// direct predecessor; the base revision has an empty DownRevision.
type Revision struct {
	ID           string
	DownRevision string
	Upgrade      func(ctx context.Context, tx pgx.Tx, log Logger) error
	Downgrade    func(ctx context.Context, tx pgx.Tx, log Logger) error
}

var registry []Revision

// register adds a revision to the package registry. Called from the revision
// files' init functions.
func register(r Revision) {
	registry = append(registry, r)
}

// ErrNoApplied is returned by Down when no revision has been applied yet.
var ErrNoApplied = errors.New("migrations: no applied revision to revert")

// RevisionStatus describes one revision and whether it has been applied.
type RevisionStatus struct {
	ID           string
	DownRevision string
	Applied      bool
	AppliedAt    *time.Time
}

// Runner applies and reverts revisions against a database. It assumes
// exclusive access to the schema for the duration of a run; mutual exclusion
// across deployments is the caller's responsibility.
type Runner struct {
	pool *pgxpool.Pool
	log  Logger
}

// NewRunner creates a Runner over the given connection pool.
func NewRunner(pool *pgxpool.Pool, log Logger) *Runner {
	return &Runner{pool: pool, log: log}
}

// chain linearizes the registered revisions from the base revision to the
// head by following predecessor pointers. It fails on missing links,
// branches, and cycles.
func chain() ([]Revision, error) {
	successors := make(map[string]Revision, len(registry))
	var base *Revision
	for i := range registry {
		r := registry[i]
		if r.DownRevision == "" {
			if base != nil {
				return nil, fmt.Errorf("migrations: multiple base revisions: %s and %s", base.ID, r.ID)
			}
			base = &r
			continue
		}
		if prev, ok := successors[r.DownRevision]; ok {
			return nil, fmt.Errorf("migrations: revisions %s and %s both declare predecessor %s", prev.ID, r.ID, r.DownRevision)
		}
		successors[r.DownRevision] = r
	}
	if base == nil {
		return nil, errors.New("migrations: no base revision registered")
	}

	ordered := make([]Revision, 0, len(registry))
	current := *base
	for {
		ordered = append(ordered, current)
		next, ok := successors[current.ID]
		if !ok {
			break
		}
		current = next
	}
	if len(ordered) != len(registry) {
		return nil, errors.New("migrations: revision graph is not a single chain")
	}
	return ordered, nil
}

// ensureRevisionTable creates the bookkeeping table if it is missing.
func (r *Runner) ensureRevisionTable(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_revisions (
			revision TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("migrations: create schema_revisions: %w", err)
	}
	return nil
}

// applied returns the set of revision ids recorded as applied.
func (r *Runner) applied(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.pool.Query(ctx, "SELECT revision, applied_at FROM schema_revisions")
	if err != nil {
		return nil, fmt.Errorf("migrations: read schema_revisions: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		result[id] = at
	}
	return result, rows.Err()
}

// Up applies every pending revision in chain order. Re-running a completed
// upgrade is a no-op.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.ensureRevisionTable(ctx); err != nil {
		return err
	}
	ordered, err := chain()
	if err != nil {
		return err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return err
	}

	for _, rev := range ordered {
		if _, ok := done[rev.ID]; ok {
			r.log.Debug("revision already applied", "revision", rev.ID)
			continue
		}
		r.log.Info("applying revision", "revision", rev.ID)
		if err := r.runInTx(ctx, rev.ID, rev.Upgrade, true); err != nil {
			return fmt.Errorf("migrations: apply %s: %w", rev.ID, err)
		}
	}
	return nil
}

// Down reverts the most recently applied revision.
func (r *Runner) Down(ctx context.Context) error {
	if err := r.ensureRevisionTable(ctx); err != nil {
		return err
	}
	ordered, err := chain()
	if err != nil {
		return err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return err
	}

	for i := len(ordered) - 1; i >= 0; i-- {
		rev := ordered[i]
		if _, ok := done[rev.ID]; !ok {
			continue
		}
		r.log.Info("reverting revision", "revision", rev.ID)
		if err := r.runInTx(ctx, rev.ID, rev.Downgrade, false); err != nil {
			return fmt.Errorf("migrations: revert %s: %w", rev.ID, err)
		}
		return nil
	}
	return ErrNoApplied
}

// Status reports every registered revision in chain order with its applied
// state.
func (r *Runner) Status(ctx context.Context) ([]RevisionStatus, error) {
	if err := r.ensureRevisionTable(ctx); err != nil {
		return nil, err
	}
	ordered, err := chain()
	if err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]RevisionStatus, 0, len(ordered))
	for _, rev := range ordered {
		s := RevisionStatus{ID: rev.ID, DownRevision: rev.DownRevision}
		if at, ok := done[rev.ID]; ok {
			s.Applied = true
			s.AppliedAt = &at
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// runInTx executes a revision step and its bookkeeping in one transaction.
func (r *Runner) runInTx(ctx context.Context, id string, step func(context.Context, pgx.Tx, Logger) error, up bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := step(ctx, tx, r.log); err != nil {
		return err
	}
	if up {
		_, err = tx.Exec(ctx, "INSERT INTO schema_revisions (revision) VALUES ($1)", id)
	} else {
		_, err = tx.Exec(ctx, "DELETE FROM schema_revisions WHERE revision = $1", id)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
