package utils

import (
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// SetupLogger configures the global logrus logger from LOG_LEVEL and
// LOG_FORMAT ("json" or "text").
func SetupLogger() {
	ConfigureLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func ConfigureLogger(levelStr, format string) {
	level, err := logger.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}
