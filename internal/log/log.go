// Package log configures the process-wide slog logger for body-echo.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/teslashibe/body-echo/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and an optional rotating file.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // also write here, rotated, when set
}

// FromEnv fills Format and File from BODY_ECHO_LOG_FORMAT and
// BODY_ECHO_LOG_FILE.
func FromEnv(level string) Options {
	return Options{
		Level:  level,
		Format: config.String("LOG_FORMAT", "text"),
		File:   config.String("LOG_FILE", ""),
	}
}

var (
	global *slog.Logger
	once   sync.Once
)

// Init installs the global logger once; later calls are ignored.
func Init(opts Options) {
	once.Do(func() {
		global = New(opts, os.Stdout)
		slog.SetDefault(global)
	})
}

// L returns the global logger, initializing it at info if needed.
func L() *slog.Logger {
	Init(Options{Level: "info"})
	return global
}

// For returns the global logger tagged with a component name.
func For(component string) *slog.Logger {
	return L().With("component", component)
}

// New builds a logger writing to w and, if opts.File is set, to a
// lumberjack-rotated file as well.
func New(opts Options, w io.Writer) *slog.Logger {
	if opts.File != "" {
		w = io.MultiWriter(w, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			LocalTime:  true,
			Compress:   true,
		})
	}

	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// ParseLevel maps a level name to slog. Unknown names are info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
