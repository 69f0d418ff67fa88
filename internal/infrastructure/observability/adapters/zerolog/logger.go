package zerolog

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"trailingest/internal/domain/observability"
)

// Logger adapts a zerolog.Logger to the observability port. Unlike a global
// package logger, instances are created per process and handed down through
// the dependency graph.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a zerolog-backed logger. Console output is human
// oriented; when console is false every line is a JSON document suitable
// for log aggregation.
func NewLogger(level string, console bool) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if console {
		out := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}
		zl = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	}

	return &Logger{zl: zl}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.emit(l.zl.Debug(), msg, fields...)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.emit(l.zl.Info(), msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.emit(l.zl.Warn(), msg, fields...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.emit(l.zl.Error(), msg, fields...)
}

// WithFields returns a logger whose zerolog context carries the fields.
func (l *Logger) WithFields(fields map[string]interface{}) observability.Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields ...interface{}) {
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if i+1 < len(fields) {
			ev = ev.Interface(key, fields[i+1])
		} else {
			ev = ev.Interface(key, nil)
		}
	}
	ev.Msg(msg)
}
