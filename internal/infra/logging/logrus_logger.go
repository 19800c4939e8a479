package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger builds a logger writing to out (stdout when nil). format is
// "json" or "text".
func NewLogrusLogger(level, format string, out io.Writer) *LogrusLogger {
	l := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// With returns a child logger that always carries fields.
func (l *LogrusLogger) With(fields map[string]any) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) log(level logrus.Level, msg string, fields map[string]any) {
	entry := l.entry
	if len(fields) > 0 {
		data := make(logrus.Fields, len(fields))
		for k, v := range fields {
			if err, ok := v.(error); ok && k == "err" {
				data[logrus.ErrorKey] = err.Error()
				continue
			}
			data[k] = v
		}
		entry = entry.WithFields(data)
	}
	entry.Log(level, msg)
}

func (l *LogrusLogger) Debug(msg string, fields map[string]any) {
	l.log(logrus.DebugLevel, msg, fields)
}

func (l *LogrusLogger) Info(msg string, fields map[string]any) {
	l.log(logrus.InfoLevel, msg, fields)
}

func (l *LogrusLogger) Warn(msg string, fields map[string]any) {
	l.log(logrus.WarnLevel, msg, fields)
}

func (l *LogrusLogger) Error(msg string, fields map[string]any) {
	l.log(logrus.ErrorLevel, msg, fields)
}
