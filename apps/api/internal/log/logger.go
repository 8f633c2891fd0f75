package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the API logger. Production writes JSON lines for the log
// shipper; every other environment gets the console writer at debug level.
// The logger also becomes the fallback for zerolog.Ctx, so code running
// outside a request still logs.
func New(environment string) zerolog.Logger {
	logger := newLogger(os.Stdout, environment)
	zerolog.DefaultContextLogger = &logger
	return logger
}

func newLogger(out io.Writer, environment string) zerolog.Logger {
	production := environment == "production"
	if !production {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := zerolog.DebugLevel
	if production {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", "rentdash-api").
		Str("env", environment).
		Logger()
}
