package penpost

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", false)

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Str("slug", "x").Msg("kept")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "x", line["slug"])
	assert.Equal(t, "kept", line["message"])
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	hiddenLog := newLogger(&buf, "nonsense", false)
	hiddenLog.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	shownLog := newLogger(&buf, "", true)
	shownLog.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
