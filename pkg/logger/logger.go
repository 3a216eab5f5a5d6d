package logger

import (
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	once sync.Once
	le   *log.Entry
)

// AddLogger returns the shared logger entry, creating it on first use.
// Output format and level are controlled through the DAFT_LOG_FORMAT and
// DAFT_LOG_LEVEL environment variables.
func AddLogger() *log.Entry {
	once.Do(func() {
		le = log.NewEntry(newLogger())
	})

	return le
}

func newLogger() *log.Logger {
	logger := log.New()

	if strings.EqualFold(os.Getenv("DAFT_LOG_FORMAT"), "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{
			ForceColors:      true,
			FullTimestamp:    true,
			QuoteEmptyFields: true,
		})
	}

	logger.SetLevel(levelFromEnv())
	logger.Out = os.Stderr

	return logger
}

func levelFromEnv() log.Level {
	raw := os.Getenv("DAFT_LOG_LEVEL")
	if raw == "" {
		return log.InfoLevel
	}

	level, err := log.ParseLevel(raw)
	if err != nil {
		return log.InfoLevel
	}

	return level
}
