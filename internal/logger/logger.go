// Package logger wraps zap with a level-configurable constructor used by
// the server bootstrap.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger carries the configured zap logger. Log is a no-op until Init is
// called.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op zap instance so callers can log
// safely before Init.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds a production zap logger at the given level ("debug", "info",
// "warn", "error"; case-insensitive) and replaces Log.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return err
	}

	l.Log = log
	return nil
}
