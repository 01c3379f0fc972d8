// Package log provides structured logging for gonlp, backed by zerolog.
//
// Components obtain a named logger either from a LoggerProvider (useful when
// an application wants to control sink and level) or from the package-level
// GetLoggerWithName, which lazily initializes a default provider writing to
// stderr at info level.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used throughout gonlp. Fields are passed
// as alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LoggerProvider hands out named loggers sharing one sink and level.
type LoggerProvider interface {
	GetLoggerWithName(name string) Logger
}

// ToLogLevel converts a level name ("debug", "info", "warn", "error") to a
// zerolog level. Unknown names map to info.
func ToLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologProvider struct {
	root zerolog.Logger
}

// NewZerologProvider creates a provider writing to stderr at the given level.
func NewZerologProvider(level zerolog.Level) LoggerProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter creates a provider writing to w at the given
// level. Useful for capturing log output in tests.
func NewZerologProviderWithWriter(w io.Writer, level zerolog.Level) LoggerProvider {
	root := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zerologProvider{root: root}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{l: p.root.With().Str("logger", name).Logger()}
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	emit(z.l.Debug(), msg, keysAndValues)
}

func (z *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	emit(z.l.Info(), msg, keysAndValues)
}

func (z *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	emit(z.l.Warn(), msg, keysAndValues)
}

func (z *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	emit(z.l.Error(), msg, keysAndValues)
}

func emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

var (
	defaultMu       sync.Mutex
	defaultProvider LoggerProvider
)

// SetDefaultProvider replaces the provider used by the package-level
// GetLoggerWithName. Intended for application startup, not hot paths.
func SetDefaultProvider(p LoggerProvider) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultProvider = p
}

// GetLoggerWithName returns a named logger from the default provider.
func GetLoggerWithName(name string) Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultProvider == nil {
		defaultProvider = NewZerologProvider(ToLogLevel("info"))
	}
	return defaultProvider.GetLoggerWithName(name)
}
