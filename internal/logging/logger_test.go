package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "copycat-api", "production")
	logger.Info().Str("action", "getCloneQuestions").Msg("handled")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "copycat-api", line["app"])
	assert.Equal(t, "production", line["env"])
	assert.Equal(t, "getCloneQuestions", line["action"])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "copycat-api", "production")

	ctx := IntoContext(context.Background(), logger)
	fromCtx := FromContext(ctx)
	fromCtx.Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")

	buf.Reset()
	fromCtx = FromContext(context.Background())
	fromCtx.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestNewWithWriterLeavesGlobalsAlone(t *testing.T) {
	before := zerolog.TimeFieldFormat
	_ = NewWithWriter(&bytes.Buffer{}, "copycat-api", "production")
	_ = NewWithWriter(&bytes.Buffer{}, "copycatctl", "development")
	assert.Equal(t, before, zerolog.TimeFieldFormat)
}
