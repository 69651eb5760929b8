package greenhub

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger every Hub derives its own
// component-scoped child logger from. Replace it with SetLogger before
// constructing a Hub to redirect or restructure output (JSON in
// production, console in development — following maumercado/task-queue-go's
// zerolog setup).
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
	With().
	Timestamp().
	Logger().
	Level(zerolog.InfoLevel)

// SetLogger replaces the package-level logger. Hubs constructed after this
// call derive from l; already-constructed Hubs keep their own child logger.
func SetLogger(l zerolog.Logger) {
	Logger = l
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
