// Package logger configures the process-wide zerolog logger shared by
// the server and the CLI.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the root logger. Packages that log through the zerolog global
// inherit it; SetLevel keeps the two in sync.
var Log zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	writer := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}
	Log = zerolog.New(writer).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("service", "salescast").
		Logger()
	log.Logger = Log
}

// SetLevel derives the log level from the server mode: debug mode runs
// verbose, release stays at info. Any other value is parsed as a plain
// zerolog level so explicit overrides like "warn" keep working.
func SetLevel(mode string) {
	var level zerolog.Level
	switch normalized := strings.ToLower(strings.TrimSpace(mode)); normalized {
	case "debug":
		level = zerolog.DebugLevel
	case "release", "":
		level = zerolog.InfoLevel
	default:
		parsed, err := zerolog.ParseLevel(normalized)
		if err != nil {
			Log.Warn().Str("mode", mode).Msg("unknown log mode, keeping info")
			parsed = zerolog.InfoLevel
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}
