// Package logging configures the global zerolog logger for the service.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger.
// level accepts debug, info, warn, error; anything else falls back to info.
// The STOCK_LOG_LEVEL environment variable overrides the configured level.
func Init(level string) {
	if env := os.Getenv("STOCK_LOG_LEVEL"); env != "" {
		level = env
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
