// Package rtlog is a thin zerolog wrapper used by the scheduler, worker
// pool, and pledge registry for structured event logging, and by the
// CLI as the sink for linter warnings (LogWarning). It uses zerolog
// directly, with no logiface layer, since a single-binary CLI doesn't
// need swappable backends.
package rtlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetOutput redirects the package logger to w, as JSON when json is
// true and as human-readable console output otherwise.
func SetOutput(w io.Writer, json bool) {
	mu.Lock()
	defer mu.Unlock()
	if json {
		logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

// SetLevel adjusts the global minimum level ("debug", "info", "warn",
// "error"); unrecognized names are ignored.
func SetLevel(level string) {
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

// For returns a child logger scoped to subsystem, e.g. "sched",
// "worker", "pledge", "lint".
func For(subsystem string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger.With().Str("subsystem", subsystem).Logger()
}

// LogWarning routes one linter diagnostic through the structured log,
// keeping this package free of a lint dependency; callers collect
// warnings with lint.CollectSink and feed them through here.
func LogWarning(subsystem string, line int, rule, message string) {
	For(subsystem).Warn().Int("line", line).Str("rule", rule).Msg(message)
}
