// Package logging wires the process-wide slog logger from configuration.
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/opensignal/signalhub/internal/config"
)

// Setup builds and installs the default slog logger for the given config.
// Console format uses tint for colored, human-scannable output; JSON format
// uses the stdlib handler for container log collection.
func Setup(cfg *config.Config) *slog.Logger {
	level := levelFor(cfg.LogLevel)
	out := os.Stdout
	if cfg.LogLevel == config.LogLevelError || cfg.LogLevel == config.LogLevelWarn {
		out = os.Stderr
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(out, &tint.Options{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func levelFor(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
