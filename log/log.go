package log

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/rs/zerolog"
	"github.com/screenleap/zerologr"
)

// New returns a logger writing to w. Verbosity 0 logs info, 1 adds debug
// output (logr V(1)) and 2 or more adds command traces (V(2)).
func New(w io.Writer, verbosity int) logr.Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(Level(verbosity)).
		With().Timestamp().Logger()
	return zerologr.New(&zl)
}

func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.InfoLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
