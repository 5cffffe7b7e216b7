package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/dobson/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{name: "debug level", level: "debug", expected: zerolog.DebugLevel},
		{name: "info level", level: "info", expected: zerolog.InfoLevel},
		{name: "warn level", level: "warn", expected: zerolog.WarnLevel},
		{name: "error level", level: "error", expected: zerolog.ErrorLevel},
		{name: "trace level", level: "trace", expected: zerolog.TraceLevel},
		{name: "empty level", level: "", expected: zerolog.InfoLevel},
		{name: "invalid level", level: "invalid", expected: zerolog.InfoLevel},
		{name: "uppercase level", level: "DEBUG", expected: zerolog.DebugLevel},
		{name: "whitespace level", level: " warn ", expected: zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, logging.ParseLevel(tt.level))
		})
	}
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(&buf, "dobson", "info", "json")
	logger.Info().Str("channel", "C1").Msg("reply sent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "dobson", entry["app"])
	assert.Equal(t, "C1", entry["channel"])
	assert.Equal(t, "reply sent", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(&buf, "dobson", "error", "json")
	logger.Info().Msg("hidden")
	logger.Debug().Msg("hidden")

	assert.Empty(t, buf.String())

	logger.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logging.New(&buf, "dobson", "info", "console")
	logger.Info().Msg("console message")

	assert.Contains(t, buf.String(), "console message")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestBase(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "console", ""} {
		logger := logging.Base("test", "info", format)
		assert.NotNil(t, logger)
	}
}
