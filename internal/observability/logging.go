// Package observability builds the process logger and the virtual-time
// stamping used by simulations.
package observability

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// VirtualTimeKey is the field carrying the world clock on every entry.
const VirtualTimeKey = "vt"

// NewLogger writes to stderr.
//
// Precondition: cfg has passed config validation.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	return Build(cfg, zapcore.Lock(os.Stderr))
}

// Build assembles a logger over sink. json output is meant for collectors
// and carries caller and stacktrace on errors; console output is for a
// terminal.
func Build(cfg config.LoggingConfig, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var enc zapcore.Encoder
	opts := []zap.Option{zap.AddCaller()}
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewJSONEncoder(ec)
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		ec.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return zap.New(zapcore.NewCore(enc, sink, level), opts...), nil
}

// WithVirtualTime stamps every entry with now() under VirtualTimeKey so
// log lines line up with the world clock rather than the wall clock.
//
// Precondition: now is non-nil and safe to call from the logging goroutine.
func WithVirtualTime(logger *zap.Logger, now func() time.Duration) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &clockCore{Core: c, now: now}
	}))
}

type clockCore struct {
	zapcore.Core
	now func() time.Duration
}

func (c *clockCore) With(fields []zapcore.Field) zapcore.Core {
	return &clockCore{Core: c.Core.With(fields), now: c.now}
}

func (c *clockCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}
	return ce.AddCore(ent, c)
}

func (c *clockCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, append([]zapcore.Field{zap.Duration(VirtualTimeKey, c.now())}, fields...))
}
