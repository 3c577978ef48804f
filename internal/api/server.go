package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/usagelens/internal/config"
)

// NewRouter wires every endpoint onto a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/usage", filtered(h, h.analytics.Usage))
			r.Get("/costs", filtered(h, h.analytics.Cost))
			r.Get("/tokens", filtered(h, h.analytics.Tokens))
			r.Get("/daily", filtered(h, h.analytics.DailyUsage))
			r.Get("/distributions", filtered(h, h.analytics.Distributions))
			r.Get("/heatmap", filtered(h, h.analytics.Heatmap))
			r.Get("/performance", filtered(h, h.analytics.Performance))
			r.Get("/overview", filtered(h, h.analytics.Overview))
		})

		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{sessionID}", h.GetSession)

		r.Get("/data-quality", h.DataQuality)
		r.Post("/data-quality/cleanup/duplicates", h.CleanupDuplicates)
		r.Post("/data-quality/cleanup/orphans", h.CleanupOrphans)
	})

	return r
}

// NewHTTPServer builds the API server for cfg.
func NewHTTPServer(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger logs one line per request through logger.
func requestLogger(logger log.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.WithFields(log.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"elapsed":    time.Since(start),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
