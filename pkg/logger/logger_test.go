package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ContextHandler_AddsRequestID(t *testing.T) {
	// given
	var buf bytes.Buffer
	log := New(&buf, "info").With("component", "test")
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")

	// when
	log.InfoContext(ctx, "hello")

	// then
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "test", record["component"])
	assert.NotContains(t, record, "trace_id")
}

func Test_New_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func Test_ParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, expected := range testCases {
		assert.Equal(t, expected, ParseLevel(in), in)
	}
}
