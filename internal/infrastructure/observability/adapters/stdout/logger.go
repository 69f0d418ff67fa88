package stdout

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"trailingest/internal/domain/observability"
)

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

var levelNames = map[logLevel]string{
	levelDebug: "DEBUG",
	levelInfo:  "INFO",
	levelWarn:  "WARN",
	levelError: "ERROR",
}

func parseLevel(s string) logLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Logger writes log lines to stdout, either as plain text or as one JSON
// object per line. It is the default logger for local development.
type Logger struct {
	level  logLevel
	json   bool
	fields map[string]interface{}
}

// NewLogger creates a stdout logger. Levels below minLevel are dropped.
// When jsonOutput is true each line is a JSON document, which keeps local
// output greppable with the same tooling used against aggregated logs.
func NewLogger(minLevel string, jsonOutput bool) *Logger {
	return &Logger{
		level:  parseLevel(minLevel),
		json:   jsonOutput,
		fields: map[string]interface{}{},
	}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(levelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(levelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(levelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(levelError, msg, fields...) }

// WithFields returns a logger that includes the given fields on every line.
func (l *Logger) WithFields(fields map[string]interface{}) observability.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, json: l.json, fields: merged}
}

func (l *Logger) log(level logLevel, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	all := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		all[k] = v
	}
	// Variadic fields come in key, value pairs; a trailing key without a
	// value is kept with a nil value rather than dropped.
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if i+1 < len(fields) {
			all[key] = fields[i+1]
		} else {
			all[key] = nil
		}
	}

	ts := time.Now().UTC().Format(time.RFC3339)

	if l.json {
		entry := map[string]interface{}{
			"timestamp": ts,
			"level":     levelNames[level],
			"message":   msg,
		}
		for k, v := range all {
			entry[k] = v
		}
		b, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stdout, "{\"timestamp\":%q,\"level\":%q,\"message\":%q}\n", ts, levelNames[level], msg)
			return
		}
		fmt.Fprintln(os.Stdout, string(b))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", ts, levelNames[level], msg)

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, all[k])
	}
	fmt.Fprintln(os.Stdout, sb.String())
}
