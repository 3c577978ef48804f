// Package analytics computes read-only projections over the sessions table:
// usage totals, time-bucketed cost and token series, categorical
// distributions, the hour-of-week heatmap, performance metrics and session
// listings.
//
// Every operation takes a filter.Filter, is stateless, and is safe to call
// concurrently. Empty result sets produce zero-valued structures with empty
// (non-nil) slices, never errors.
package analytics

import (
	"context"
	"database/sql"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/usagelens/internal/logging"
	"github.com/blackwell-systems/usagelens/internal/telemetry"
)

// Querier is the read side of a store handle. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Engine runs analytics queries against an injected store handle.
type Engine struct {
	db   Querier
	log  log.FieldLogger
	inst *telemetry.Instruments
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l log.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithInstruments sets the metric instruments operations record into.
func WithInstruments(i *telemetry.Instruments) Option {
	return func(e *Engine) { e.inst = i }
}

// New returns an Engine reading from db.
func New(db Querier, opts ...Option) *Engine {
	e := &Engine{db: db, log: logging.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// track records the outcome of one operation. Call it deferred with a
// pointer to the named error result.
func (e *Engine) track(ctx context.Context, op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	e.inst.Observe(ctx, op, start, err)

	entry := e.log.WithFields(log.Fields{"op": op, "elapsed": time.Since(start)})
	if err != nil {
		entry.WithError(err).Warn("analytics query failed")
		return
	}
	entry.Debug("analytics query done")
}
