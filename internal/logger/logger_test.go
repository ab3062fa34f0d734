package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)

	l := Init("stockfeed", slog.LevelInfo, "json", &buf)
	require.NotNil(t, l)
	slog.Debug("hidden")
	slog.Info("hello", "symbol", "AAPL")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "stockfeed", rec["service"])
	assert.Equal(t, "AAPL", rec["symbol"])
}

func TestInit_Text(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)

	Init("stockfeed", slog.LevelDebug, "text", &buf)
	slog.Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "service=stockfeed")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "": slog.LevelInfo, "WARN": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestRunID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RunID(ctx))
	assert.Nil(t, Attrs(ctx))

	ctx = WithRunID(ctx, "01HRUN")
	assert.Equal(t, "01HRUN", RunID(ctx))
	assert.Len(t, Attrs(ctx), 1)
}
