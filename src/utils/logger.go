package utils

import (
	"context"
	"fmt"
	"io"
	"os"

	"ledger/src/config"

	"github.com/sirupsen/logrus"
)

type contextKey string

const loggerKey = contextKey("logger")

// NewLogger builds the JSON logger described by cfg. Unknown levels fall back
// to info. When ToFile is set, entries are appended to FilePath.
func NewLogger(cfg config.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var out io.Writer = os.Stdout
	if cfg.ToFile {
		file, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.FilePath, err)
		}
		out = file
	}
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	return logger, nil
}

func WithLogger(ctx context.Context, logger *logrus.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the request or job logger, or a plain text logger
// at info level when the context carries none.
func LoggerFromContext(ctx context.Context) *logrus.Logger {
	logger, ok := ctx.Value(loggerKey).(*logrus.Logger)
	if !ok {
		fallback := logrus.New()
		fallback.SetFormatter(&logrus.TextFormatter{})
		return fallback
	}
	return logger
}
