package utils

import (
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// SplitCSV splits a comma separated flag value, dropping blanks and duplicates.
func SplitCSV(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// LeveledLogger routes retryablehttp's key/value logging into logrus.
type LeveledLogger struct {
	Logger *logrus.Logger
}

func (l LeveledLogger) fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}

func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(l.fields(keysAndValues)).Error(msg)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(l.fields(keysAndValues)).Info(msg)
}

// Debug is used by retryablehttp for every request, so it stays at debug.
func (l LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(l.fields(keysAndValues)).Warn(msg)
}
