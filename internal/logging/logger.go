// Package logging constructs the application logger. Services receive the
// *logrus.Logger by injection rather than reaching for a package global.
package logging

import (
	"github.com/sirupsen/logrus"
)

// New creates a logger configured for the given level and environment.
// Production emits JSON for log aggregation; everything else stays on the
// human-readable text formatter. An unparseable level falls back to info.
func New(level, environment string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
