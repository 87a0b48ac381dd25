package config

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// InitLogger configures the package-level logrus logger. The level comes from
// LOG_LEVEL and defaults to info.
func InitLogger(jsonFormat bool) {
	if jsonFormat {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(getEnvDefault("LOG_LEVEL", "info"))
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", os.Getenv("LOG_LEVEL"))
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
