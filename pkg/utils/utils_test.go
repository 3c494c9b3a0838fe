package utils

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "", RedactToken("", 4, 4))
	assert.Equal(t, "******", RedactToken("abcdef", 4, 4))
	assert.Equal(t, "eyJh...sig1", RedactToken("eyJhbGciOiJSUzI1NiJ9.payload.sig1", 4, 4))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijklmnop", 10))
}

func TestHeaderFromMap(t *testing.T) {
	h := HeaderFromMap(
		map[string]string{"authorization": "Bearer abc", "x-single": "one"},
		map[string][]string{"x-multi": {"a", "b"}, "x-single": {"multi-wins"}},
	)

	assert.Equal(t, "Bearer abc", h.Get("Authorization"))
	assert.Equal(t, []string{"a", "b"}, h.Values("X-Multi"))
	assert.Equal(t, []string{"multi-wins"}, h.Values("X-Single"))
}
