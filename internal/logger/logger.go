// Package logger holds the process-wide zap logger. The terminal owns
// stdout/stderr while the UI is running, so the sink is a file.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a no-op logger until Initialize is called.
var Log = zap.NewNop()

// Initialize replaces Log with a production logger at the given level,
// writing to path. An empty path keeps the no-op logger, which is what
// tests and log-less runs want.
func Initialize(level string, path string) error {
	if path == "" {
		return nil
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}

// Sync flushes buffered log entries; called on shutdown.
func Sync() {
	_ = Log.Sync()
}
