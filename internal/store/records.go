package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// SessionColumns is the column list ScanSession expects, in order.
const SessionColumns = `id, session_id, project_name, started_at, ended_at, duration_seconds,
	total_cost_usd, total_input_tokens, total_output_tokens, model_name, tools_used,
	cache_hit_count, cache_miss_count, created_at`

// InsertSession writes a session row. A missing ID is filled with a new
// UUID and a zero CreatedAt with the current time; both are written back
// into s.
func InsertSession(ctx context.Context, ex Execer, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	tools := s.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return fmt.Errorf("encoding tools_used: %w", err)
	}

	var endedAt sql.NullString
	if s.EndedAt != nil {
		endedAt = sql.NullString{String: FormatTime(*s.EndedAt), Valid: true}
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO sessions
		(id, session_id, project_name, started_at, ended_at, duration_seconds,
		 total_cost_usd, total_input_tokens, total_output_tokens, model_name, tools_used,
		 cache_hit_count, cache_miss_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SessionID, nullString(s.ProjectName), FormatTime(s.StartedAt), endedAt,
		nullFloat(s.DurationSeconds), s.TotalCostUSD, s.TotalInputTokens, s.TotalOutputTokens,
		nullString(s.ModelName), string(toolsJSON), s.CacheHitCount, s.CacheMissCount,
		FormatTime(s.CreatedAt),
	)
	return err
}

// InsertSessionMetrics writes a metrics row and returns its ID.
func InsertSessionMetrics(ctx context.Context, ex Execer, m *SessionMetrics) (int64, error) {
	result, err := ex.ExecContext(ctx,
		`INSERT INTO session_metrics
		(session_ref, date_bucket, message_count, input_tokens, output_tokens)
		VALUES (?, ?, ?, ?, ?)`,
		m.SessionRef, m.DateBucket, m.MessageCount, m.InputTokens, m.OutputTokens,
	)
	if err != nil {
		return 0, err
	}
	m.ID, err = result.LastInsertId()
	return m.ID, err
}

// InsertRawMessage writes a message row and returns its ID.
func InsertRawMessage(ctx context.Context, ex Execer, m *RawMessage) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	result, err := ex.ExecContext(ctx,
		"INSERT INTO raw_messages (session_ref, role, content, created_at) VALUES (?, ?, ?, ?)",
		m.SessionRef, m.Role, m.Content, FormatTime(m.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	m.ID, err = result.LastInsertId()
	return m.ID, err
}

// InsertSession writes a session row using the database connection.
func (db *DB) InsertSession(ctx context.Context, s *Session) error {
	return InsertSession(ctx, db.conn, s)
}

// InsertSessionMetrics writes a metrics row using the database connection.
func (db *DB) InsertSessionMetrics(ctx context.Context, m *SessionMetrics) (int64, error) {
	return InsertSessionMetrics(ctx, db.conn, m)
}

// InsertRawMessage writes a message row using the database connection.
func (db *DB) InsertRawMessage(ctx context.Context, m *RawMessage) (int64, error) {
	return InsertRawMessage(ctx, db.conn, m)
}

// ScanSession scans one row selected with SessionColumns.
func ScanSession(row Scanner) (*Session, error) {
	var (
		s                           Session
		project, endedAt, model     sql.NullString
		duration                    sql.NullFloat64
		startedAt, tools, createdAt string
	)
	if err := row.Scan(
		&s.ID, &s.SessionID, &project, &startedAt, &endedAt, &duration,
		&s.TotalCostUSD, &s.TotalInputTokens, &s.TotalOutputTokens, &model, &tools,
		&s.CacheHitCount, &s.CacheMissCount, &createdAt,
	); err != nil {
		return nil, err
	}

	if project.Valid {
		s.ProjectName = &project.String
	}
	if model.Valid {
		s.ModelName = &model.String
	}
	if duration.Valid {
		s.DurationSeconds = &duration.Float64
	}
	var err error
	if s.StartedAt, err = ParseTime(startedAt); err != nil {
		return nil, fmt.Errorf("session %s: parsing started_at: %w", s.ID, err)
	}
	if s.CreatedAt, err = ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("session %s: parsing created_at: %w", s.ID, err)
	}
	if endedAt.Valid {
		t, err := ParseTime(endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("session %s: parsing ended_at: %w", s.ID, err)
		}
		s.EndedAt = &t
	}
	s.ToolsUsed = DecodeTools(tools)

	return &s, nil
}

// DecodeTools decodes a tools_used column. Malformed values decode to an
// empty list rather than failing the whole query.
func DecodeTools(raw string) []string {
	tools := []string{}
	if raw == "" {
		return tools
	}
	if err := json.Unmarshal([]byte(raw), &tools); err != nil || tools == nil {
		return []string{}
	}
	return tools
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
