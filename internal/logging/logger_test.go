package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: level, Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

func TestInitWritesJSON(t *testing.T) {
	buf := captureJSON(t, "info")

	Info().Str("file", "a.png").Msg("analyzing")
	Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "a.png", line["file"])
	assert.Equal(t, "analyzing", line["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, parseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("chatty"))
}

func TestCtxAddsRunID(t *testing.T) {
	buf := captureJSON(t, "debug")

	id := NewRunID()
	ctx := ContextWithRunID(context.Background(), id)
	assert.Equal(t, id, RunIDFromContext(ctx))
	assert.Empty(t, RunIDFromContext(context.Background()))

	Ctx(ctx).Debug().Msg("stage done")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, id, line["run_id"])
}
