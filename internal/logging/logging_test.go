package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn", "json"))

	log.Info().Msg("hidden")
	log.Warn().Str("room_id", "ABC123").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "ABC123", line["room_id"])
	assert.Equal(t, "shown", line["message"])
}

func TestSetup_Console(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "DEBUG", "console"))
	log.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestSetup_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Setup(&buf, "loud", "json"))
	assert.Error(t, Setup(&buf, "info", "xml"))
}
