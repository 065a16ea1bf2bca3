package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/zap/zapcore"
)

const (
	BackendSlog    = "slog"
	BackendZap     = "zap"
	BackendZerolog = "zerolog"

	FormatJSON = "json"
	FormatText = "text"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Level is a backend-neutral log level.
type Level int

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts debug, info, warn and error; anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Options selects and tunes a logging backend.
type Options struct {
	Backend     string
	Format      string
	Environment string
	Level       Level
	// Output is used by the slog and zerolog backends; nil means stdout.
	Output io.Writer
}

// New builds the Logger named by opts.Backend. An empty backend means slog.
func New(opts Options) (Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Backend {
	case "", BackendSlog:
		return newSlog(out, opts.Format, opts.Level), nil

	case BackendZap:
		zl, err := newZap(opts.Environment, opts.Level, opts.Format)
		if err != nil {
			return nil, fmt.Errorf("zap init: %w", err)
		}
		return NewZapLogger(zl), nil

	case BackendZerolog:
		var w io.Writer = out
		if opts.Format == FormatText {
			w = zerolog.ConsoleWriter{Out: out, NoColor: true}
		}
		zl := zerolog.New(w).Level(opts.Level.zerolog()).With().Timestamp().Logger()
		return NewZerologLogger(zl), nil
	}

	return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
}
