package mailmerge

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"off", LevelOff, true},
		{"trace", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseLogLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "rows", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "rows=2")

	buf.Reset()
	off := NewLogger(&buf, "off")
	off.Error("nothing")
	assert.Empty(t, buf.String())
}

func TestSetLogger(t *testing.T) {
	original := Logger()
	t.Cleanup(func() { SetLogger(original) })

	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, "debug"))
	Logger().Debug("custom logger")
	assert.Contains(t, buf.String(), "custom logger")

	SetLogger(nil)
	assert.NotNil(t, Logger())
}

func TestEngineUsesConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	engine := NewWithOptions(
		WithConfig(&Config{Workers: 1, HeadersFooters: true}),
		WithLogger(NewLogger(&buf, "info")),
	)

	_, err := engine.GenerateMerged(t.Context(), letterTemplate,
		[]Row{{"First": "a", "Last": "b"}}, letterMapping)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "merged document generated")
	assert.Contains(t, buf.String(), "rows=1")
}
