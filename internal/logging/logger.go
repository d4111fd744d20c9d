// Package logging configures the process-wide logrus logger.
package logging

import (
	"strings" // Case-insensitive format names

	"github.com/sirupsen/logrus" // Logging library
)

// Setup configures the standard logrus logger from the LOG_LEVEL and LOG_FORMAT settings.
func Setup(level, format string) {
	logrus.SetLevel(parseLevel(level))
	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine-readable output
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true}) // Human-readable output
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel // Unknown levels fall back to info
	}
	return parsed
}
