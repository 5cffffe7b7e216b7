package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Base builds a zerolog.Logger with level/format applied per-call.
// format: json|console; level: trace|debug|info|warn|error.
// Output goes to stderr so that command output (who, devices) stays clean on stdout.
func Base(app, level, format string) zerolog.Logger {
	return New(os.Stderr, app, level, format)
}

// New is Base with an explicit writer.
func New(out io.Writer, app, level, format string) zerolog.Logger {
	lvl := ParseLevel(level)
	w := writerForFormat(out, format)

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("app", app).Logger()
}

// ParseLevel maps a level name to zerolog, falling back to info.
func ParseLevel(s string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s))); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}

	return zerolog.InfoLevel
}

func writerForFormat(out io.Writer, format string) io.Writer {
	if strings.ToLower(strings.TrimSpace(format)) == "console" {
		return zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stderr && out != os.Stdout}
	}

	return out
}
