// Package util provides low-level helpers shared by all other packages.
package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  It is a thin layer over logrus that keeps the
// -v / -vv / -vvv verbosity model of the CLI.
type Logger struct {
	level  LogLevel
	entry  *logrus.Entry
	format *levelFormatter
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	level := LogLevel(verbosity)
	if level > LogDebug {
		level = LogDebug
	}
	if level < LogQuiet {
		level = LogQuiet
	}

	f := &levelFormatter{timestamps: level >= LogDebug} // auto-enable timestamps in debug mode
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(f)
	l.SetLevel(logrusLevel(level))

	return &Logger{level: level, entry: logrus.NewEntry(l), format: f}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.format.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.entry.Logger.SetOutput(w) }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// WithField returns a Logger that appends key=value to every line.
// The returned Logger shares output and level with its parent.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{level: l.level, entry: l.entry.WithField(key, value), format: l.format}
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) { l.entry.Infof(format, args...) }

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// ── logrus plumbing ──────────────────────────────────────────────────

func logrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogQuiet:
		return logrus.ErrorLevel
	case LogNormal:
		return logrus.InfoLevel
	case LogVerbose:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// levelFormatter renders "[TAG] message key=value" lines, optionally
// prefixed with a HH:MM:SS.mmm timestamp.
type levelFormatter struct {
	timestamps bool
}

func (f *levelFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if f.timestamps {
		b.WriteString(e.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] %s", levelTag(e.Level), e.Message)

	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelTag(level logrus.Level) string {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "ERR"
	case logrus.WarnLevel:
		return "WRN"
	case logrus.InfoLevel:
		return "INF"
	case logrus.DebugLevel:
		return "VRB"
	default:
		return "DBG"
	}
}
