// Package logger builds the service's structured zerolog logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/config"
)

// New returns a configured zerolog.Logger: console-formatted in every
// environment, at debug level in development and info level otherwise.
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(out).With().Timestamp().Logger()
}
