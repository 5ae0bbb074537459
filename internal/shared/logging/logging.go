package logging

import (
	"os"
	"strings"
	"time"

	"github.com/perito-digital/platform/internal/shared/config"
	"github.com/rs/zerolog"
)

// New builds the process-wide logger from configuration.
// JSON output for production, human-readable console output for development.
func New(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Str("service", "perito-platform").Logger()
}
