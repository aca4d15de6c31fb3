// Package logging builds the zerolog loggers shared by the server and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

// New returns a logger for env. Local runs get a console writer, the others
// emit JSON. An empty level keeps the default of the env.
func New(env, level string, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimestampFieldName = "timestamp"

	var lvl zerolog.Level
	switch env {
	case EnvDev:
		lvl = zerolog.DebugLevel
	case EnvProd:
		lvl = zerolog.InfoLevel
	case EnvLocal:
		lvl = zerolog.TraceLevel

		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = out
		out = consoleWriter
	default:
		return zerolog.Nop(), fmt.Errorf("unknown env: %s", env)
	}

	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger(), nil
}
