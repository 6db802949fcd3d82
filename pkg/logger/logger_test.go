package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "json", &buf).Component("scoring")

	log.Info().Str("user_id", "u1").Msg("tracked")
	log.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scoring", entry["component"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "tracked", entry["message"])
	assert.False(t, log.IsDebug())
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error().Msg("nothing")
	assert.NotNil(t, log.Component("x"))
}

func TestPrintf(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", "json", &buf).Component("gorm")

	log.Printf("slow query %dms", 250)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slow query 250ms", entry["message"])
	assert.Equal(t, "gorm", entry["component"])
	assert.NotContains(t, entry, "level")
}
