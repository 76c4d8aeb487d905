// Package logger configures structured logging using zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. Pretty output goes to stderr through
// the console writer, otherwise JSON lines are written.
func Init(level string, pretty bool) {
	logLevel := zerolog.InfoLevel
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// Logger returns the global logger instance.
func Logger() zerolog.Logger {
	return log.Logger
}

// ChangeLog records every description a run rewrites, one JSON line per
// change, tagged with the run ID.
type ChangeLog struct {
	log    zerolog.Logger
	closer io.Closer
}

// NopChangeLog discards changes.
func NopChangeLog() *ChangeLog {
	return &ChangeLog{log: zerolog.Nop()}
}

// NewChangeLog writes changes to w.
func NewChangeLog(w io.Writer, runID string) *ChangeLog {
	return &ChangeLog{log: zerolog.New(w).With().Timestamp().Str("run_id", runID).Logger()}
}

// OpenChangeLog appends changes to the file at path. An empty path discards.
func OpenChangeLog(path, runID string) (*ChangeLog, error) {
	if path == "" {
		return NopChangeLog(), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open change log %s: %w", path, err)
	}
	cl := NewChangeLog(f, runID)
	cl.closer = f
	return cl, nil
}

// Record logs one rewritten description. Entries carry no level so the
// global log level never filters them.
func (c *ChangeLog) Record(file string, index int, reason, before, after string) {
	c.log.Log().
		Str("file", file).
		Int("index", index).
		Str("reason", reason).
		Str("old", before).
		Str("new", after).
		Msg("description changed")
}

// Close flushes the underlying file, if any.
func (c *ChangeLog) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
