package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Run("json 格式", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(&buf, Config{Format: "json"}))
		log.Info("hello", "k", "v")
		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.Contains(t, buf.String(), `"k":"v"`)
	})

	t.Run("text 格式", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(&buf, Config{}))
		log.Info("hello", "k", "v")
		assert.Contains(t, buf.String(), "msg=hello")
		assert.Contains(t, buf.String(), "k=v")
	})

	t.Run("级别过滤", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(NewHandler(&buf, Config{Level: "warn"}))
		log.Info("hidden")
		assert.Empty(t, buf.String())
	})
}

func TestNamed(t *testing.T) {
	assert.NotNil(t, L())
	assert.NotNil(t, Named("router"))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(t.Context(), slog.LevelError))
}
