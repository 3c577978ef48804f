// Package api exposes the analytics engine and data quality operations as a
// JSON HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/filter"
	"github.com/blackwell-systems/usagelens/internal/logging"
	"github.com/blackwell-systems/usagelens/internal/quality"
)

// Analytics is the read surface served under /api/analytics and
// /api/sessions. *analytics.Engine implements it.
type Analytics interface {
	Usage(ctx context.Context, f filter.Filter) (analytics.UsageMetrics, error)
	Cost(ctx context.Context, f filter.Filter) (analytics.CostAnalysis, error)
	Tokens(ctx context.Context, f filter.Filter) (analytics.TokenAnalysis, error)
	DailyUsage(ctx context.Context, f filter.Filter) ([]analytics.DailyUsagePoint, error)
	Distributions(ctx context.Context, f filter.Filter) (analytics.Distributions, error)
	Heatmap(ctx context.Context, f filter.Filter) (analytics.Heatmap, error)
	Performance(ctx context.Context, f filter.Filter) (analytics.PerformanceMetrics, error)
	Overview(ctx context.Context, f filter.Filter) (analytics.Overview, error)
	ListSessions(ctx context.Context, f filter.Filter) (analytics.SessionList, error)
	GetSession(ctx context.Context, sessionID string) (*analytics.SessionDetail, error)
}

// Auditor produces data quality reports. *quality.Auditor implements it.
type Auditor interface {
	Audit(ctx context.Context) (quality.Report, error)
}

// Cleaner performs the repairing deletes. *quality.Cleaner implements it.
type Cleaner interface {
	DeduplicateSessions(ctx context.Context) (quality.Result, error)
	RemoveOrphanedMetrics(ctx context.Context) (quality.Result, error)
}

// Handler serves the API endpoints.
type Handler struct {
	analytics    Analytics
	auditor      Auditor
	cleaner      Cleaner
	log          log.FieldLogger
	defaultLimit int
}

// NewHandler creates a Handler. defaultLimit is the page size used by the
// session listing when the request gives none.
func NewHandler(a Analytics, au Auditor, c Cleaner, logger log.FieldLogger, defaultLimit int) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		analytics:    a,
		auditor:      au,
		cleaner:      c,
		log:          logger,
		defaultLimit: defaultLimit,
	}
}

// filtered adapts a filter-taking engine method to an HTTP handler.
func filtered[T any](h *Handler, fn func(context.Context, filter.Filter) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseFilter(r.URL.Query())
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		result, err := fn(r.Context(), f)
		if err != nil {
			h.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, result)
	}
}

// ListSessions serves GET /api/sessions with a default page size.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if f.Limit == nil {
		limit := h.defaultLimit
		f.Limit = &limit
	}
	if f.Offset == nil {
		offset := 0
		f.Offset = &offset
	}

	list, err := h.analytics.ListSessions(r.Context(), f)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, list)
}

// GetSession serves GET /api/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	detail, err := h.analytics.GetSession(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if detail == nil {
		h.writeError(w, r, http.StatusNotFound, errNotFound("session "+sessionID))
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail)
}

// DataQuality serves GET /api/data-quality.
func (h *Handler) DataQuality(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditor.Audit(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}

// CleanupDuplicates serves POST /api/data-quality/cleanup/duplicates.
func (h *Handler) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	h.cleanup(w, r, h.cleaner.DeduplicateSessions)
}

// CleanupOrphans serves POST /api/data-quality/cleanup/orphans.
func (h *Handler) CleanupOrphans(w http.ResponseWriter, r *http.Request) {
	h.cleanup(w, r, h.cleaner.RemoveOrphanedMetrics)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request, fn func(context.Context) (quality.Result, error)) {
	res, err := fn(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

// Healthz serves GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
