package blobstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/buildkite/blobstream/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

const validName = "2025-12-04-abc123def456xyz789ab"

var validConfig = Config{StorageAccount: "account", Container: "container"}

type fakeReader struct {
	calls atomic.Int64
	open  func(ctx context.Context, key string) (*store.Object, error)
}

func (f *fakeReader) NewReader(ctx context.Context, key string) (*store.Object, error) {
	f.calls.Add(1)
	return f.open(ctx, key)
}

func TestService_Open_ConfigError(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		setting string
	}{
		{name: "missing account", cfg: Config{Container: "container"}, setting: EnvStorageAccount},
		{name: "missing container", cfg: Config{StorageAccount: "account"}, setting: EnvContainer},
		{name: "missing both", cfg: Config{}, setting: EnvStorageAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{}
			res := New(tt.cfg, reader).Open(context.Background(), validName)

			assert.Equal(t, OutcomeConfigError, res.Outcome)
			assert.Contains(t, res.Reason, tt.setting)
			assert.ErrorIs(t, res.Err, ErrConfig)
			assert.Nil(t, res.Object)
			assert.Zero(t, reader.calls.Load())
		})
	}
}

func TestService_Open_ConfigCheckedBeforeName(t *testing.T) {
	res := New(Config{}, nil).Open(context.Background(), "")
	assert.Equal(t, OutcomeConfigError, res.Outcome)
}

func TestService_Open_InvalidName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "missing", input: "", reason: "Missing required parameter: blob_name"},
		{name: "pattern", input: "invalid-name", reason: "Expected format: YYYY-MM-DD-{20 alphanumeric characters}"},
		{name: "traversal", input: "../../etc/passwd", reason: "Expected format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{}
			res := New(validConfig, reader).Open(context.Background(), tt.input)

			assert.Equal(t, OutcomeInvalidName, res.Outcome)
			assert.Contains(t, res.Reason, tt.reason)
			assert.ErrorIs(t, res.Err, ErrInvalidName)
			assert.Zero(t, reader.calls.Load(), "backend must not be called for invalid names")
			if tt.input != "" {
				assert.NotContains(t, res.Reason, tt.input)
			}
		})
	}
}

func TestService_Open_NotFound(t *testing.T) {
	reader := &fakeReader{open: func(ctx context.Context, key string) (*store.Object, error) {
		return nil, fmt.Errorf("failed to create blob reader: %w", store.ErrNotFound)
	}}

	res := New(validConfig, reader).Open(context.Background(), validName)

	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrNotFound)
	assert.Equal(t, "Blob not found", res.Reason)
	assert.Equal(t, int64(1), reader.calls.Load())
}

func TestService_Open_BackendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "access denied", err: fmt.Errorf("%w: AuthenticationFailed: credential token=eyJ0eXAi", store.ErrAccessDenied)},
		{name: "transport", err: errors.New("dial tcp 10.0.0.4:443: connection refused")},
		{name: "cancelled", err: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{open: func(ctx context.Context, key string) (*store.Object, error) {
				return nil, tt.err
			}}

			res := New(validConfig, reader).Open(context.Background(), validName)

			assert.Equal(t, OutcomeBackendError, res.Outcome)
			assert.ErrorIs(t, res.Err, ErrBackend)
			assert.ErrorIs(t, res.Err, tt.err)
			assert.Equal(t, "Internal server error", res.Reason)

			lower := strings.ToLower(res.Reason)
			for _, word := range []string{"credential", "key", "token", "10.0.0.4"} {
				assert.NotContains(t, lower, word)
			}
		})
	}
}

func TestService_Open_NilReader(t *testing.T) {
	res := New(validConfig, nil).Open(context.Background(), validName)
	assert.Equal(t, OutcomeBackendError, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrBackend)
}

func TestService_Open_OK(t *testing.T) {
	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	require.NoError(t, bucket.WriteAll(ctx, "daily/"+validName, []byte("hello"), &blob.WriterOptions{ContentType: "text/csv"}))

	cfg := validConfig
	cfg.Prefix = "daily"
	svc := New(cfg, store.NewGocloudBlobFromBucket(bucket, cfg.Prefix))

	res := svc.Open(ctx, validName)
	defer res.Close()

	require.Equal(t, OutcomeOK, res.Outcome)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Object)
	assert.Equal(t, "text/csv", res.Object.ContentType)
	assert.Equal(t, int64(5), res.Object.Size)

	got, err := io.ReadAll(res.Object)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestService_Open_DefaultContentType(t *testing.T) {
	reader := &fakeReader{open: func(ctx context.Context, key string) (*store.Object, error) {
		return &store.Object{ReadCloser: io.NopCloser(strings.NewReader("x")), Key: key, Size: 1}, nil
	}}

	res := New(validConfig, reader).Open(context.Background(), validName)
	defer res.Close()

	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, DefaultContentType, res.Object.ContentType)
}

func TestResult_Close(t *testing.T) {
	require.NoError(t, Result{Outcome: OutcomeNotFound}.Close())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "invalid_name", OutcomeInvalidName.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "config_error", OutcomeConfigError.String())
	assert.Equal(t, "backend_error", OutcomeBackendError.String())
	assert.Equal(t, "outcome(42)", Outcome(42).String())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig.Validate())

	err := Config{StorageAccount: "account"}.Validate()
	require.ErrorIs(t, err, ErrConfig)
	require.EqualError(t, err, "CONTAINER_NAME not set")
}

func TestConfig_AzureConfig(t *testing.T) {
	cfg := Config{StorageAccount: "a", Container: "c", ClientID: "id", EndpointSuffix: "s", Prefix: "p"}
	az := cfg.AzureConfig("blobstream/dev")

	assert.Equal(t, store.AzureConfig{
		Account:        "a",
		Container:      "c",
		ClientID:       "id",
		EndpointSuffix: "s",
		Prefix:         "p",
		ApplicationID:  "blobstream/dev",
	}, az)
}
