package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestInit(t *testing.T) {
	defer Set(nil)

	require.NoError(t, Init("debug", "production"))
	assert.NotNil(t, Get())

	require.NoError(t, Init("info", "development"))
	assert.NotNil(t, Get())
}

func TestGet_FallbackWhenUninitialized(t *testing.T) {
	Set(nil)
	assert.NotNil(t, Get())
	assert.NoError(t, Sync())
}

func TestWithContext_AddsRunID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	defer Set(nil)

	ctx := WithRunID(context.Background(), "run-42")
	WithContext(ctx).Info("ingest started", String("symbol", "AAPL"))
	WithContext(context.Background()).Info("no run")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "run-42", entries[0].ContextMap()["run_id"])
	assert.Equal(t, "AAPL", entries[0].ContextMap()["symbol"])
	_, hasRunID := entries[1].ContextMap()["run_id"]
	assert.False(t, hasRunID)
}

func TestPackageLevelHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)

	Debug("d", Int("n", 1))
	Info("i", Strings("symbols", []string{"A", "B"}))
	Warn("w", Bool("ok", false))
	Error("e", ErrorField(assert.AnError))

	assert.Equal(t, 4, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("w").Len())
}
