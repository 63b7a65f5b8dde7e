// Package log provides the structured, leveled logger used across the
// service. It wraps zap so call sites never import zap directly and can be
// swapped without touching every package that logs.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the global logger.
type Config struct {
	Level  string `conf:"level" yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `conf:"format" yaml:"format" json:"format"` // json|console

	// OutputPath, when non-empty, routes logs through lumberjack for rotation
	// instead of stderr.
	OutputPath string `conf:"output_path" yaml:"output_path" json:"output_path"`
	MaxSizeMB  int    `conf:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `conf:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `conf:"compress" yaml:"compress" json:"compress"`
}

// Field is a structured logging field, aliasing zap's.
type Field = zap.Field

func String(key, val string) Field      { return zap.String(key, val) }
func Int(key string, val int) Field     { return zap.Int(key, val) }
func Int64(key string, val int64) Field { return zap.Int64(key, val) }
func Bool(key string, val bool) Field   { return zap.Bool(key, val) }
func Any(key string, val any) Field     { return zap.Any(key, val) }
func Cause(err error) Field             { return zap.Error(err) }
func Duration(key string, d any) Field  { return zap.Any(key, d) }
func Time(key string, t any) Field      { return zap.Any(key, t) }
func Float64(key string, v float64) Field { return zap.Float64(key, v) }

// Hook mutates/augments the field list attached to every log call; it is used
// to inject context-derived fields (trace id, operation name) without every
// call site threading them through by hand.
type Hook interface {
	Apply(ctx context.Context, msg string, fields ...Field) []Field
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, msg string, fields ...Field) []Field

func (f HookFunc) Apply(ctx context.Context, msg string, fields ...Field) []Field {
	return f(ctx, msg, fields...)
}

// Logger wraps a *zap.Logger with context-aware hooks.
type Logger struct {
	base  *zap.Logger
	mu    sync.RWMutex
	hooks []Hook
}

// New builds a Logger from Config.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.OutputPath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.OutputPath,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: defaultInt(cfg.MaxBackups, 5),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		})
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, level)

	l := &Logger{base: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
	l.AddHook(HookFunc(traceFields))

	return l
}

// AddHook registers a context-field hook. Not safe to call concurrently with
// logging calls on the same Logger; call during setup only.
func (l *Logger) AddHook(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

func (l *Logger) applyHooks(ctx context.Context, msg string, fields []Field) []Field {
	l.mu.RLock()
	hooks := l.hooks
	l.mu.RUnlock()

	for _, h := range hooks {
		fields = h.Apply(ctx, msg, fields...)
	}

	return fields
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.base.Debug(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.base.Info(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.base.Warn(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.base.Error(msg, l.applyHooks(ctx, msg, fields)...)
}

// AsSlog bridges to log/slog for third-party libraries (gin, the pool
// executor) that want one.
func (l *Logger) AsSlog() *slog.Logger {
	return slog.New(slogHandler{base: l.base})
}

// slogHandler is a minimal slog.Handler adapter over a *zap.Logger; it avoids
// pulling in an extra bridging dependency for what is otherwise a handful of
// call sites (gin's debug writer, the pool executor).
type slogHandler struct {
	base   *zap.Logger
	fields []Field
}

func (h slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.base.Core().Enabled(slogToZapLevel(level))
}

func (h slogHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]Field, 0, len(h.fields)+r.NumAttrs())
	fields = append(fields, h.fields...)

	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zap.Any(a.Key, a.Value.Any()))
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		h.base.Error(r.Message, fields...)
	case r.Level >= slog.LevelWarn:
		h.base.Warn(r.Message, fields...)
	case r.Level >= slog.LevelInfo:
		h.base.Info(r.Message, fields...)
	default:
		h.base.Debug(r.Message, fields...)
	}

	return nil
}

func (h slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]Field, 0, len(h.fields)+len(attrs))
	fields = append(fields, h.fields...)

	for _, a := range attrs {
		fields = append(fields, zap.Any(a.Key, a.Value.Any()))
	}

	return slogHandler{base: h.base, fields: fields}
}

func (h slogHandler) WithGroup(name string) slog.Handler {
	return h
}

func slogToZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}

	return v
}

var (
	globalMu     sync.RWMutex
	globalLogger = New(Config{Level: "info", Format: "json"})
)

// SetGlobalConfig (re)initializes the process-wide default logger.
func SetGlobalConfig(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = New(cfg)
}

// GetGlobalLogger returns the process-wide default logger.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return globalLogger
}

func Debug(ctx context.Context, msg string, fields ...Field) { GetGlobalLogger().Debug(ctx, msg, fields...) }
func Info(ctx context.Context, msg string, fields ...Field)  { GetGlobalLogger().Info(ctx, msg, fields...) }
func Warn(ctx context.Context, msg string, fields ...Field)  { GetGlobalLogger().Warn(ctx, msg, fields...) }
func Error(ctx context.Context, msg string, fields ...Field) { GetGlobalLogger().Error(ctx, msg, fields...) }
