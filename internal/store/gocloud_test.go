package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

const testKey = "2025-12-04-abc123def456xyz789ab"

func TestGocloudBlob_MemBlob(t *testing.T) {
	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	content := []byte("Hello, gocloud.dev!")
	err := bucket.WriteAll(ctx, "test-prefix/"+testKey, content, &blob.WriterOptions{ContentType: "text/plain"})
	require.NoError(t, err)

	store := NewGocloudBlobFromBucket(bucket, "/test-prefix")
	defer store.Close()

	obj, err := store.NewReader(ctx, testKey)
	require.NoError(t, err)
	defer obj.Close()

	assert.Equal(t, testKey, obj.Key)
	assert.Equal(t, int64(len(content)), obj.Size)
	assert.Equal(t, "text/plain", obj.ContentType)
	assert.False(t, obj.ModTime.IsZero())

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestGocloudBlob_NotFound(t *testing.T) {
	ctx := context.Background()

	store := NewGocloudBlobFromBucket(memblob.OpenBucket(nil), "")
	defer store.Close()

	obj, err := store.NewReader(ctx, testKey)
	require.Nil(t, obj)
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, gcerrors.NotFound, gcerrors.Code(err))
}

func TestGocloudBlob_LocalFile(t *testing.T) {
	ctx := context.Background()

	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "blobs"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "blobs", testKey), []byte("file content"), 0o600))

	store, err := NewGocloudBlob(ctx, "file://"+tmpDir, "blobs")
	require.NoError(t, err)
	defer store.Close()

	obj, err := store.NewReader(ctx, testKey)
	require.NoError(t, err)
	defer obj.Close()

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "file content", string(got))
}

func TestGocloudBlob_InvalidURL(t *testing.T) {
	_, err := NewGocloudBlob(context.Background(), "nosuchscheme://bucket", "")
	require.Error(t, err)
}

func TestGocloudBlob_S3URL(t *testing.T) {
	// credentials are resolved on the first request, so opening stays offline
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	b, err := NewGocloudBlob(context.Background(), "s3://blobstream-mirror?region=us-east-1", "daily")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "daily/"+testKey, b.getFullKey(testKey))
}

func TestClassify(t *testing.T) {
	t.Run("authentication failure", func(t *testing.T) {
		err := classify(&azidentity.AuthenticationFailedError{})
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unclassified errors pass through", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := classify(cause)
		require.Equal(t, cause, err)
		require.NotErrorIs(t, err, ErrNotFound)
		require.NotErrorIs(t, err, ErrAccessDenied)
	})
}

func TestGocloudBlob_Interface(t *testing.T) {
	// This test ensures that GocloudBlob properly implements the Reader interface
	var _ Reader = (*GocloudBlob)(nil)
}

func TestGetFullKey(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: testKey, want: testKey},
		{prefix: "daily", key: testKey, want: "daily/" + testKey},
		{prefix: "/daily/", key: "/" + testKey, want: "daily/" + testKey},
	}

	for _, tt := range tests {
		b := &GocloudBlob{prefix: normalizePrefix(tt.prefix)}
		assert.Equal(t, tt.want, b.getFullKey(tt.key))
	}
}
