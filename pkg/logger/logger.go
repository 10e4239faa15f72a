// Package logger provides structured logging with context support.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "csafcms/internal/core/context"
)

// Logger wraps zap.SugaredLogger with context-aware logging.
type Logger struct {
	*zap.SugaredLogger
}

// loggerKey is the context key for Logger.
type loggerKey struct{}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error; anything else means info
	Development bool   // console encoding with colored levels
	OutputPaths []string
	// Fields are attached to every entry, e.g. service name and version.
	Fields map[string]any
}

// New creates a new Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		config.OutputPaths = cfg.OutputPaths
	}
	if len(cfg.Fields) > 0 {
		config.InitialFields = cfg.Fields
	}

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return Wrap(zapLogger), nil
}

// Wrap adapts an existing zap logger, e.g. one built by zaptest.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{l.Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return Wrap(zap.NewNop())
}

// WithContext adds trace info from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if trace := appctx.GetTrace(ctx); trace != nil {
		return l.With(
			"trace_id", trace.TraceID,
			"request_id", trace.RequestID,
		)
	}
	return l
}

// With adds key-value pairs to logger.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithComponent adds component name to logger.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithDocument scopes the logger to a stored document. Empty values are
// left out so store-wide operations log no document fields.
func (l *Logger) WithDocument(docID, rev string) *Logger {
	var kv []any
	if docID != "" {
		kv = append(kv, "doc_id", docID)
	}
	if rev != "" {
		kv = append(kv, "revision", rev)
	}
	if kv == nil {
		return l
	}
	return l.With(kv...)
}

// --- Context-based logger access ---

// WithLogger adds Logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger enriched with trace info. Without
// one it falls back to zap's global logger, which main replaces at startup.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l.WithContext(ctx)
	}
	return Wrap(zap.L()).WithContext(ctx)
}

// Error logs at error level from context.
func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
}
