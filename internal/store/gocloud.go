package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/buildkite/blobstream/internal/trace"
	"go.opentelemetry.io/otel/attribute"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // Local file driver for development
	_ "gocloud.dev/blob/memblob"  // In-memory driver for testing
	_ "gocloud.dev/blob/s3blob"   // AWS S3 driver
	"gocloud.dev/gcerrors"
)

// GocloudBlob implements the Reader interface using gocloud.dev
type GocloudBlob struct {
	bucket *blob.Bucket
	prefix string
}

// Ensure GocloudBlob implements the Reader interface
var _ Reader = (*GocloudBlob)(nil)

// NewGocloudBlob creates a new GocloudBlob instance using a blob URL and prefix
// For local development: "file:///path/to/directory"
// For tests: "mem://"
// For S3 mirrors: "s3://bucket-name?region=us-east-1"
// Azure containers are opened with NewAzureBlob, which wires the managed
// identity credential in explicitly.
func NewGocloudBlob(ctx context.Context, blobURL, prefix string) (*GocloudBlob, error) {
	bucket, err := blob.OpenBucket(ctx, blobURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}

	return NewGocloudBlobFromBucket(bucket, prefix), nil
}

// NewGocloudBlobFromBucket wraps an already opened bucket. The GocloudBlob
// takes ownership of bucket and closes it in Close.
func NewGocloudBlobFromBucket(bucket *blob.Bucket, prefix string) *GocloudBlob {
	return &GocloudBlob{
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}
}

// Close closes the underlying bucket connection
func (b *GocloudBlob) Close() error {
	return b.bucket.Close()
}

// NewReader opens the blob for streaming. The download starts immediately so
// a missing object is reported here, before the caller commits to a response;
// the body itself is pulled from the network as it is read.
func (b *GocloudBlob) NewReader(ctx context.Context, key string) (*Object, error) {
	ctx, span := trace.Start(ctx, "GocloudBlob.NewReader")
	defer span.End()

	fullKey := b.getFullKey(key)

	span.SetAttributes(attribute.String("blob_key", fullKey))

	reader, err := b.bucket.NewReader(ctx, fullKey, nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to create blob reader: %w", classify(err))
	}

	span.SetAttributes(
		attribute.Int64("blob_size", reader.Size()),
		attribute.String("blob_content_type", reader.ContentType()),
	)

	return &Object{
		ReadCloser:  reader,
		Key:         key,
		Size:        reader.Size(),
		ContentType: reader.ContentType(),
		ModTime:     reader.ModTime(),
	}, nil
}

// classify attaches ErrNotFound or ErrAccessDenied to backend errors so
// callers can branch with errors.Is without knowing the driver.
func classify(err error) error {
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}

	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case gcerrors.PermissionDenied:
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}

	return err
}

// getFullKey combines the prefix with the key
func (b *GocloudBlob) getFullKey(key string) string {
	// Remove leading slash from key if present
	key = strings.TrimPrefix(key, "/")
	// Combine prefix and key
	return path.Join(b.prefix, key)
}
