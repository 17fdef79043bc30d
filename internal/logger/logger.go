// Package logger configures the process-wide slog logger used by the CLI.
// Library packages do not log; they return diagnostics.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// EnvLevel names the environment variable read for the initial level.
const EnvLevel = "UNBUN_LOG_LEVEL"

var (
	Logger *slog.Logger
	level  = new(slog.LevelVar)
	mu     sync.Mutex
)

func init() {
	lvl, _ := ParseLevel(os.Getenv(EnvLevel))
	initLogger(lvl, os.Stderr, false)
}

// ParseLevel maps debug/info/warn/error (any case) to a slog level.
// An empty or unknown name yields info and false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func initLogger(lvl slog.Level, w io.Writer, useJSON bool) {
	if w == nil {
		w = os.Stderr
	}
	level.Set(lvl)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if useJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	Logger = slog.New(handler)
}

// Init replaces the logger.
func Init(lvl slog.Level, w io.Writer, useJSON bool) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(lvl, w, useJSON)
}

func Level() slog.Level { return level.Level() }
