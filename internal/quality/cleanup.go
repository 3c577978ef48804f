package quality

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/usagelens/internal/logging"
	"github.com/blackwell-systems/usagelens/internal/telemetry"
)

// TxBeginner starts transactions. *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Cleaner performs the two repairing deletes. Each runs as a single DELETE
// inside its own transaction and is idempotent.
type Cleaner struct {
	db   TxBeginner
	log  log.FieldLogger
	inst *telemetry.Instruments
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithCleanerLogger sets the cleaner's logger.
func WithCleanerLogger(l log.FieldLogger) CleanerOption {
	return func(c *Cleaner) { c.log = l }
}

// WithCleanerInstruments sets the metric instruments.
func WithCleanerInstruments(i *telemetry.Instruments) CleanerOption {
	return func(c *Cleaner) { c.inst = i }
}

// NewCleaner returns a Cleaner writing through db.
func NewCleaner(db TxBeginner, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{db: db, log: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const deduplicateSQL = `
	DELETE FROM sessions WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY session_id ORDER BY created_at DESC, id DESC
			) AS rn
			FROM sessions
		) WHERE rn > 1
	)`

const orphanedMetricsSQL = `
	DELETE FROM session_metrics
	WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.id = session_metrics.session_ref)`

// DeduplicateSessions keeps the most recently created row of every
// session_id and deletes the rest.
func (c *Cleaner) DeduplicateSessions(ctx context.Context) (Result, error) {
	n, err := c.delete(ctx, "deduplicate", deduplicateSQL)
	if err != nil {
		return Result{}, fmt.Errorf("deduplicating sessions: %w", err)
	}
	if n == 0 {
		return Result{Message: "No duplicate sessions found"}, nil
	}
	return Result{
		DeletedRecords: n,
		Message:        fmt.Sprintf("Removed %d duplicate session rows", n),
	}, nil
}

// RemoveOrphanedMetrics deletes metrics rows whose parent session no longer
// exists. Sessions are never touched.
func (c *Cleaner) RemoveOrphanedMetrics(ctx context.Context) (Result, error) {
	n, err := c.delete(ctx, "remove_orphans", orphanedMetricsSQL)
	if err != nil {
		return Result{}, fmt.Errorf("removing orphaned metrics: %w", err)
	}
	if n == 0 {
		return Result{Message: "No orphaned metrics found"}, nil
	}
	return Result{
		DeletedRecords: n,
		Message:        fmt.Sprintf("Removed %d orphaned metrics rows", n),
	}, nil
}

// delete runs query in a transaction and returns the affected row count.
// Any failure rolls the transaction back.
func (c *Cleaner) delete(ctx context.Context, op, query string) (n int64, err error) {
	start := time.Now()
	defer func() {
		c.inst.Observe(ctx, op, start, err)
		entry := c.log.WithFields(log.Fields{"op": op, "elapsed": time.Since(start)})
		if err != nil {
			entry.WithError(err).Error("cleanup rolled back")
			return
		}
		c.inst.Deleted(ctx, op, n)
		entry.WithField("deleted", n).Info("cleanup committed")
	}()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return n, nil
}
