package quality

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/usagelens/internal/logging"
	"github.com/blackwell-systems/usagelens/internal/store"
	"github.com/blackwell-systems/usagelens/internal/telemetry"
)

// maxDuplicateGroups bounds Report.Duplicates.
const maxDuplicateGroups = 50

// Querier is the read side of a store handle.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Auditor inspects the whole store. It never writes.
type Auditor struct {
	db          Querier
	log         log.FieldLogger
	now         func() time.Time
	inst        *telemetry.Instruments
	recommender *Recommender
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithAuditLogger sets the auditor's logger.
func WithAuditLogger(l log.FieldLogger) AuditorOption {
	return func(a *Auditor) { a.log = l }
}

// WithClock sets the clock future timestamps are measured against.
func WithClock(now func() time.Time) AuditorOption {
	return func(a *Auditor) { a.now = now }
}

// WithAuditInstruments sets the metric instruments.
func WithAuditInstruments(i *telemetry.Instruments) AuditorOption {
	return func(a *Auditor) { a.inst = i }
}

// NewAuditor returns an Auditor reading from db.
func NewAuditor(db Querier, opts ...AuditorOption) *Auditor {
	a := &Auditor{
		db:          db,
		log:         logging.Discard(),
		now:         time.Now,
		recommender: NewRecommender(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit computes the full data quality report.
func (a *Auditor) Audit(ctx context.Context) (r Report, err error) {
	start := time.Now()
	defer func() {
		a.inst.Observe(ctx, "audit", start, err)
		if err != nil {
			a.log.WithError(err).Warn("data quality audit failed")
			return
		}
		a.log.WithFields(log.Fields{
			"elapsed": time.Since(start),
			"score":   r.CompletenessScore,
			"issues":  r.TotalIssues,
		}).Debug("data quality audit done")
	}()

	if err := a.counts(ctx, &r.Counts); err != nil {
		return Report{}, err
	}
	if r.Duplicates, err = a.duplicates(ctx); err != nil {
		return Report{}, err
	}
	if err := a.missing(ctx, &r.MissingData); err != nil {
		return Report{}, err
	}
	if err := a.integrity(ctx, &r.DataIntegrity); err != nil {
		return Report{}, err
	}

	r.TotalIssues = r.MissingData.Total() + r.DataIntegrity.Total()
	r.CompletenessScore = CompletenessScore(r.TotalIssues, r.Counts.TotalSessions)
	r.Grade = Grade(r.CompletenessScore)
	r.Recommendations = a.recommender.Run(&r)
	return r, nil
}

func (a *Auditor) counts(ctx context.Context, c *Counts) error {
	if err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN ended_at IS NOT NULL AND duration_seconds IS NOT NULL
		                          AND duration_seconds > 0 THEN 1 ELSE 0 END), 0)
		FROM sessions`).Scan(&c.TotalSessions, &c.CompleteSessions); err != nil {
		return fmt.Errorf("counting sessions: %w", err)
	}

	if err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(n - 1), 0) FROM (
			SELECT COUNT(*) AS n FROM sessions GROUP BY session_id HAVING COUNT(*) > 1
		)`).Scan(&c.DuplicateSessions, &c.RedundantRows); err != nil {
		return fmt.Errorf("counting duplicates: %w", err)
	}

	if err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM session_metrics m
		LEFT JOIN sessions s ON s.id = m.session_ref
		WHERE s.id IS NULL`).Scan(&c.OrphanedMetrics); err != nil {
		return fmt.Errorf("counting orphaned metrics: %w", err)
	}

	if err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM session_metrics m
		WHERE NOT EXISTS (SELECT 1 FROM raw_messages r WHERE r.session_ref = m.session_ref)`,
	).Scan(&c.MetricsWithoutMessages); err != nil {
		return fmt.Errorf("counting metrics without messages: %w", err)
	}
	return nil
}

func (a *Auditor) duplicates(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*) AS n, MIN(created_at), MAX(created_at)
		FROM sessions
		GROUP BY session_id HAVING COUNT(*) > 1
		ORDER BY n DESC, session_id
		LIMIT ?`, maxDuplicateGroups)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	groups := []DuplicateGroup{}
	for rows.Next() {
		var g DuplicateGroup
		var first, last string
		if err := rows.Scan(&g.SessionID, &g.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning duplicate group: %w", err)
		}
		if g.FirstSeen, err = store.ParseTime(first); err != nil {
			return nil, fmt.Errorf("duplicate group %s: parsing first created_at: %w", g.SessionID, err)
		}
		if g.LastSeen, err = store.ParseTime(last); err != nil {
			return nil, fmt.Errorf("duplicate group %s: parsing last created_at: %w", g.SessionID, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate groups: %w", err)
	}
	return groups, nil
}

func (a *Auditor) missing(ctx context.Context, m *MissingData) error {
	if err := a.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN ended_at IS NULL THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN duration_seconds IS NULL THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN total_input_tokens = 0 AND total_output_tokens = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN total_cost_usd = 0 THEN 1 ELSE 0 END), 0)
		FROM sessions`).Scan(&m.MissingEndTime, &m.MissingDuration, &m.MissingTokens, &m.MissingCost); err != nil {
		return fmt.Errorf("counting missing data: %w", err)
	}

	if err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM session_metrics WHERE message_count = 0",
	).Scan(&m.ZeroMessageMetrics); err != nil {
		return fmt.Errorf("counting zero-message metrics: %w", err)
	}
	return nil
}

func (a *Auditor) integrity(ctx context.Context, d *DataIntegrity) error {
	now := store.FormatTime(a.now())
	if err := a.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN total_input_tokens < 0 OR total_output_tokens < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN total_cost_usd < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN duration_seconds < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN started_at > ? OR ended_at > ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN ended_at IS NOT NULL AND ended_at < started_at THEN 1 ELSE 0 END), 0)
		FROM sessions`, now, now).Scan(
		&d.NegativeTokens, &d.NegativeCosts, &d.NegativeDurations, &d.FutureTimestamps, &d.InvalidTimeRanges,
	); err != nil {
		return fmt.Errorf("counting integrity violations: %w", err)
	}
	return nil
}
