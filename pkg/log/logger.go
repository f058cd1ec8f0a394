package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// SetupLogger configures both the slog default logger and the package
// zerolog logger for the given level ("debug", "info", "warn", "error").
// Output goes to stderr so stdout stays free for tool results.
func SetupLogger(loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}

	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{Key: "severity", Value: attr.Value}
			case slog.MessageKey:
				attr = slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(os.Stderr, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))

	defaultProvider.configure(os.Stderr, level)
	return nil
}

// ToLogLevel converts a Level into the matching slog.Level.
func ToLogLevel(level Level) slog.Level {
	return slog.Level(level)
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a Logger writing JSON lines to w at the given
// minimum level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Zerolog exposes the underlying zerolog logger.
func (l *ZerologLogger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error. A leading error value is logged under
// ErrAttrKey with its stack trace.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	e := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(e, ErrAttrKey, err)
			fields = fields[1:]
		}
	}
	emit(e, msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if i+1 >= len(fields) {
			e = e.Interface("!BADKEY", fields[i])
			break
		}
		switch v := fields[i+1].(type) {
		case error:
			addError(e, key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		case time.Duration:
			e = e.Int64(key, v.Milliseconds())
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func addError(e *zerolog.Event, key string, err error) {
	e.AnErr(key, err)
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceAttrKey, st)
	}
	var m zerolog.LogObjectMarshaler
	if errors.As(err, &m) {
		e.Object(key+"_detail", m)
	}
}

// provider is the process-wide LoggerProvider.
type provider struct {
	mu     sync.RWMutex
	out    io.Writer
	level  Level
	logger *ZerologLogger
}

var defaultProvider = newProvider(os.Stderr, LevelInfo)

func newProvider(w io.Writer, level Level) *provider {
	p := &provider{}
	p.configure(w, level)
	return p
}

func (p *provider) configure(w io.Writer, level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
	p.level = level
	p.logger = NewZerologLogger(w, level)
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *provider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *provider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *provider) SetLevel(level Level) {
	p.mu.RLock()
	w := p.out
	p.mu.RUnlock()
	p.configure(w, level)
}

func (p *provider) warn(w error) {
	p.mu.RLock()
	zl := p.logger.zl
	p.mu.RUnlock()

	e := zl.Warn()
	if m, ok := w.(zerolog.LogObjectMarshaler); ok {
		e = e.EmbedObject(m)
	}
	e.Msg(w.Error())
}

// Provider returns the process-wide LoggerProvider.
func Provider() LoggerProvider {
	return defaultProvider
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return defaultProvider.GetLoggerWithName(name)
}

// SetOutput redirects the process-wide logger, keeping its level.
func SetOutput(w io.Writer) {
	defaultProvider.mu.RLock()
	level := defaultProvider.level
	defaultProvider.mu.RUnlock()
	defaultProvider.configure(w, level)
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(level Level) {
	defaultProvider.SetLevel(level)
}

func init() {
	errors.SetZerologWarnFunc(defaultProvider.warn)
}
