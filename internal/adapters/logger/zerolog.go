package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// ZerologLogger implements the ports.Logger interface using rs/zerolog.
// This is the production adapter; StdLogger remains for tooling that wants
// plain output.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger creates a zerolog-backed logger writing JSON to stderr.
func NewZerologLogger(level LogLevel) *ZerologLogger {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(toZerologLevel(level))
	return &ZerologLogger{logger: zl}
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *ZerologLogger) emit(ev *zerolog.Event, msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 && fields[0] != nil {
		ev = ev.Fields(fields[0])
	}
	ev.Msg(msg)
}

// Debug logs a message at Debug level.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Debug(), msg, fields...)
}

// Info logs a message at Info level.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Info(), msg, fields...)
}

// Warn logs a message at Warning level.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Warn(), msg, fields...)
}

// Error logs an error message at Error level.
func (l *ZerologLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.emit(l.logger.Error().Err(err), msg, fields...)
}
