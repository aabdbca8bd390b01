package mailmerge

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LevelOff disables logging when used as a handler level
const LevelOff = slog.Level(100)

var (
	globalLogger     *slog.Logger
	globalLoggerMu   sync.RWMutex
	globalLoggerOnce sync.Once
	globalLevel      = new(slog.LevelVar)
)

func parseLogLevel(levelStr string) (slog.Level, bool) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "off":
		return LevelOff, true
	default:
		return slog.LevelInfo, false
	}
}

// NewLogger creates a text logger writing to w at the given level name
// (debug, info, warn, error, off). Unknown names log at info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	lvl, _ := parseLogLevel(level)
	if lvl == LevelOff {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		lvl, _ := parseLogLevel(GetGlobalConfig().LogLevel)
		globalLevel.Set(lvl)
		globalLoggerMu.Lock()
		if globalLogger == nil {
			globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: globalLevel}))
		}
		globalLoggerMu.Unlock()
	})
}

// Logger returns the package logger. By default it writes text to stderr at the level of
// the global configuration.
func Logger() *slog.Logger {
	initGlobalLogger()
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the package logger
func SetLogger(l *slog.Logger) {
	initGlobalLogger()
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	globalLoggerMu.Lock()
	globalLogger = l
	globalLoggerMu.Unlock()
}

// UpdateLoggerFromConfig applies the global configuration's log level to the default logger
func UpdateLoggerFromConfig() {
	initGlobalLogger()
	lvl, _ := parseLogLevel(GetGlobalConfig().LogLevel)
	globalLevel.Set(lvl)
}
