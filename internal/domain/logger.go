package domain

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging severity
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel converts a config string to a LogLevel. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LogFormat selects console or json output
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// Logger provides leveled logging on top of zerolog
type Logger struct {
	level LogLevel
	zl    zerolog.Logger
}

// NewLogger creates a console logger on stdout
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stdout, level, LogFormatConsole)
}

// NewLoggerTo creates a logger writing to out in the given format
func NewLoggerTo(out io.Writer, level LogLevel, format LogFormat) *Logger {
	if out == nil {
		out = os.Stdout
	}
	var zl zerolog.Logger
	if format == LogFormatJSON {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	}
	zl = zl.Level(level.zerolog()).With().Timestamp().Logger()
	return &Logger{level: level, zl: zl}
}

// Debug logs debug-level messages
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, v...))
}

// Info logs info-level messages
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, v...))
}

// Warn logs warning-level messages
func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, v...))
}

// Error logs error-level messages
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, v...))
}

// WithPrefix returns a new logger tagged with a component name
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		level: l.level,
		zl:    l.zl.With().Str("component", prefix).Logger(),
	}
}

// WithField returns a new logger carrying an extra string field
func (l *Logger) WithField(key, value string) *Logger {
	return &Logger{
		level: l.level,
		zl:    l.zl.With().Str(key, value).Logger(),
	}
}

// DefaultLogger is the default logger instance
var DefaultLogger = NewLogger(LogLevelInfo)

// NopLogger discards everything. Handy in tests.
func NopLogger() *Logger {
	return &Logger{level: LogLevelError, zl: zerolog.Nop()}
}
