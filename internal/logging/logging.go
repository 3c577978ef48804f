// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/usagelens/internal/config"
)

// New returns a logger writing to w with the configured level and format.
// Format "json" selects the JSON formatter; anything else uses text.
func New(cfg config.Log, w io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(w)

	level := cfg.Level
	if level == "" {
		level = config.DefaultLog.Level
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Components default to it
// when no logger is injected.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(log.PanicLevel)
	return logger
}
