package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/usagelens/internal/analytics"
	"github.com/blackwell-systems/usagelens/internal/config"
	"github.com/blackwell-systems/usagelens/internal/logging"
	"github.com/blackwell-systems/usagelens/internal/output"
	"github.com/blackwell-systems/usagelens/internal/quality"
	"github.com/blackwell-systems/usagelens/internal/store"
	"github.com/blackwell-systems/usagelens/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// appEnv holds everything a command needs, built from config and flags.
type appEnv struct {
	cfg      *config.Config
	log      *log.Logger
	db       *store.DB
	engine   *analytics.Engine
	auditor  *quality.Auditor
	cleaner  *quality.Cleaner
	shutdown telemetry.ShutdownFunc
}

// openEnv loads config, applies the persistent flags and opens the store.
// Callers must Close the returned env.
func openEnv(cmd *cobra.Command) (*appEnv, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}

	output.SetNoColor(flagNoColor || !output.ShouldColor(cmd.OutOrStdout(), cfg.Output.Color))

	shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry, appVersion)
	if err != nil {
		logger.WithError(err).Warn("telemetry disabled")
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
	}
	logger.WithField("db", cfg.DBPath).Debug("store opened")

	inst := telemetry.Default()
	return &appEnv{
		cfg:      cfg,
		log:      logger,
		db:       db,
		engine:   analytics.New(db.Conn(), analytics.WithLogger(logger), analytics.WithInstruments(inst)),
		auditor:  quality.NewAuditor(db.Conn(), quality.WithAuditLogger(logger), quality.WithAuditInstruments(inst)),
		cleaner:  quality.NewCleaner(db.Conn(), quality.WithCleanerLogger(logger), quality.WithCleanerInstruments(inst)),
		shutdown: shutdown,
	}, nil
}

// Close releases the store and flushes telemetry.
func (e *appEnv) Close() {
	if err := e.db.Close(); err != nil {
		e.log.WithError(err).Warn("closing database")
	}
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	if err := e.shutdown(ctx); err != nil {
		e.log.WithError(err).Warn("flushing telemetry")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
