package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_AddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")

	ctx := WithTraceID(context.Background(), "abc-123")
	log.WithContext(ctx).Info("resolved chain", "roster_id", 4)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc-123", line["trace_id"])
	assert.Equal(t, float64(4), line["roster_id"])
}

func TestWithContext_NoTraceID(t *testing.T) {
	log := Discard()
	assert.Same(t, log, log.WithContext(context.Background()))
}

func TestError_AppendsStack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.Error("upstream failed", "path", "/league/1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Contains(t, line["stack"], "runtime/debug.Stack")
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
