package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTransferSpeedMBps(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		duration time.Duration
		want     float64
	}{
		{name: "one copy buffer in a millisecond", bytes: 32 * 1024, duration: time.Millisecond, want: 32.768},
		{name: "1 MiB streamed in one second", bytes: 1 << 20, duration: time.Second, want: 1.048576},
		{name: "100MB to a slow client over ten minutes", bytes: 100_000_000, duration: 10 * time.Minute, want: 100.0 / 600},
		{name: "empty blob", bytes: 0, duration: time.Millisecond, want: 0},
		{name: "zero duration", bytes: 1024, duration: 0, want: 0},
		{name: "negative duration", bytes: 1024, duration: -time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateTransferSpeedMBps(tt.bytes, tt.duration), 1e-9)
		})
	}
}

func TestNewTransferInfo(t *testing.T) {
	start := time.Now().Add(-250 * time.Millisecond)

	info := NewTransferInfo(5_000_000, start)
	require.NotNil(t, info)

	assert.Equal(t, int64(5_000_000), info.BytesTransferred)
	assert.GreaterOrEqual(t, info.Duration, 250*time.Millisecond)
	assert.Greater(t, info.TransferSpeed, 0.0)
	assert.LessOrEqual(t, info.TransferSpeed, 20.0)
	assert.Empty(t, info.RequestID)
}

func TestNormalizePrefix(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"/":       "",
		"daily":   "daily/",
		"/daily":  "daily/",
		"daily/":  "daily/",
		"a/b/c":   "a/b/c/",
		"/a/b/c/": "a/b/c/",
	}

	for in, want := range tests {
		assert.Equal(t, want, normalizePrefix(in), "normalizePrefix(%q)", in)
	}
}
