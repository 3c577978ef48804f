package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/store"
)

// ListSessions returns one page of filtered sessions, newest first.
// HasMore is only computed when both limit and offset are set.
func (e *Engine) ListSessions(ctx context.Context, f filter.Filter) (l SessionList, err error) {
	defer e.track(ctx, "list_sessions", time.Now(), &err)

	pred := f.Compile("")
	if err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE "+pred.SQL, pred.Args...).Scan(&l.Total); err != nil {
		return SessionList{}, fmt.Errorf("counting sessions: %w", err)
	}

	page, pageArgs := f.Page()
	args := append(append([]any{}, pred.Args...), pageArgs...)
	l.Sessions, err = collect(ctx, e.db, `
		SELECT `+store.SessionColumns+` FROM sessions WHERE `+pred.SQL+`
		ORDER BY started_at DESC, created_at DESC`+page, args, scanSummary)
	if err != nil {
		return SessionList{}, fmt.Errorf("listing sessions: %w", err)
	}

	if f.Limit != nil && f.Offset != nil {
		l.HasMore = int64(*f.Offset) < l.Total-int64(*f.Limit)
	}
	return l, nil
}

// GetSession returns the most recently created row for sessionID with its
// raw message count, or nil when no row exists.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (d *SessionDetail, err error) {
	defer e.track(ctx, "get_session", time.Now(), &err)

	row := e.db.QueryRowContext(ctx, `
		SELECT `+store.SessionColumns+` FROM sessions
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, sessionID)
	s, err := store.ScanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", sessionID, err)
	}

	detail := &SessionDetail{SessionSummary: summaryFromSession(s)}
	if err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM raw_messages WHERE session_ref = ?", s.ID).Scan(&detail.MessageCount); err != nil {
		return nil, fmt.Errorf("counting messages for session %s: %w", sessionID, err)
	}
	return detail, nil
}
