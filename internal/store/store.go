package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the object does not exist in the container.
	ErrNotFound = errors.New("blob not found")

	// ErrAccessDenied is returned when the identity could not authenticate or
	// lacks permission to read the object.
	ErrAccessDenied = errors.New("blob access denied")
)

// Reader opens objects for sequential reading.
type Reader interface {
	// NewReader opens key for reading. The returned Object must be closed by
	// the caller. Failures wrap ErrNotFound or ErrAccessDenied where the
	// backend can tell them apart.
	NewReader(ctx context.Context, key string) (*Object, error)
}

// Object is an open blob. Reads are served lazily from the backend.
type Object struct {
	io.ReadCloser

	Key         string
	Size        int64 // -1 when unknown
	ContentType string
	ModTime     time.Time
}

type TransferInfo struct {
	BytesTransferred int64
	TransferSpeed    float64 // in MB/s
	RequestID        string
	Duration         time.Duration
}

// NewTransferInfo summarises a finished transfer of n bytes that began at start.
func NewTransferInfo(n int64, start time.Time) *TransferInfo {
	duration := time.Since(start)

	return &TransferInfo{
		BytesTransferred: n,
		TransferSpeed:    calculateTransferSpeedMBps(n, duration),
		Duration:         duration,
	}
}

func calculateTransferSpeedMBps(bytes int64, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(bytes) / duration.Seconds() / 1000 / 1000
}

func normalizePrefix(prefix string) string {
	// Remove leading slash if present
	prefix = strings.TrimPrefix(prefix, "/")
	// Add trailing slash if not empty and doesn't have one
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
