// Package blobstream streams named objects from a single cloud blob container
// to HTTP clients.
//
// A request names one object. The name must match a fixed pattern (see
// internal/key) which doubles as the guard against path traversal, so a valid
// name is used directly as the storage key. Objects are never buffered: the
// backend read stream is forwarded to the client in bounded chunks.
//
// The main entry point is New, which wraps a storage reader and the
// process-wide configuration in a Service. Service.Open turns a requested
// name into a Result, which the HTTP layer translates into a response. A
// Service holds no mutable state and is safe for concurrent use by multiple
// goroutines.
//
// Basic usage:
//
//	reader, err := store.NewAzureBlob(ctx, store.AzureConfig{
//	    Account:   cfg.StorageAccount,
//	    Container: cfg.Container,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc := blobstream.New(cfg, reader)
//
//	res := svc.Open(ctx, "2025-12-04-abc123def456xyz789ab")
//	defer res.Close()
//	if res.Outcome != blobstream.OutcomeOK {
//	    log.Printf("open failed: %v", res.Err)
//	}
package blobstream

import (
	"errors"
	"fmt"

	"github.com/buildkite/blobstream/internal/store"
)

// Sentinel errors for each failure category. Result.Err wraps exactly one of
// them.
var (
	// ErrInvalidName is returned when the requested name is empty or does not
	// match the naming pattern. This is a client fault.
	ErrInvalidName = errors.New("invalid blob name")

	// ErrNotFound is returned when the object does not exist in the
	// configured container.
	ErrNotFound = errors.New("blob not found")

	// ErrConfig is returned when a required setting is missing. This is a
	// deployment fault, not a per-request one.
	ErrConfig = errors.New("configuration error")

	// ErrBackend is returned for authentication, authorization and transport
	// failures talking to the store.
	ErrBackend = errors.New("backend error")
)

// Environment variables naming the required settings. Configuration errors
// refer to settings by these names.
const (
	EnvStorageAccount = "STORAGE_ACCOUNT_NAME"
	EnvContainer      = "CONTAINER_NAME"
)

// ParamBlobName is the query parameter carrying the requested name.
const ParamBlobName = "blob_name"

// DefaultContentType is used when the store has no content type for an object.
const DefaultContentType = "application/octet-stream"

// Config holds the process-wide settings. It is built once at start-up and
// never mutated.
type Config struct {
	// StorageAccount is the storage account name (required).
	StorageAccount string

	// Container is the container all names are resolved in (required).
	Container string

	// ClientID selects a user-assigned managed identity. Optional; when empty
	// the platform's default identity is used.
	ClientID string

	// EndpointSuffix overrides the blob service domain for sovereign clouds.
	// Optional; defaults to "blob.core.windows.net".
	EndpointSuffix string

	// Prefix is an optional virtual directory inside the container that all
	// names are resolved under.
	Prefix string
}

// MissingSettingError reports a required setting that was not provided.
type MissingSettingError struct {
	// Setting is the environment variable name of the missing setting.
	Setting string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("%s not set", e.Setting)
}

// Unwrap makes errors.Is(err, ErrConfig) true for missing settings.
func (e *MissingSettingError) Unwrap() error { return ErrConfig }

// Validate returns a *MissingSettingError for the first missing required
// setting, checking the storage account before the container.
func (c Config) Validate() error {
	if c.StorageAccount == "" {
		return &MissingSettingError{Setting: EnvStorageAccount}
	}
	if c.Container == "" {
		return &MissingSettingError{Setting: EnvContainer}
	}
	return nil
}

// AzureConfig converts c into the store's container settings.
func (c Config) AzureConfig(applicationID string) store.AzureConfig {
	return store.AzureConfig{
		Account:        c.StorageAccount,
		Container:      c.Container,
		ClientID:       c.ClientID,
		EndpointSuffix: c.EndpointSuffix,
		Prefix:         c.Prefix,
		ApplicationID:  applicationID,
	}
}

// Outcome categorises the result of opening a blob.
type Outcome int

const (
	// OutcomeOK means Result.Object is open and ready to stream.
	OutcomeOK Outcome = iota
	// OutcomeInvalidName means the name was missing or malformed.
	OutcomeInvalidName
	// OutcomeNotFound means the object does not exist.
	OutcomeNotFound
	// OutcomeConfigError means a required setting is missing.
	OutcomeConfigError
	// OutcomeBackendError means the store could not be read.
	OutcomeBackendError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalidName:
		return "invalid_name"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeConfigError:
		return "config_error"
	case OutcomeBackendError:
		return "backend_error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the outcome of Service.Open.
//
// Check Outcome first. Only OutcomeOK carries an Object; every other outcome
// carries a Reason and an Err.
type Result struct {
	// Outcome is the result category.
	Outcome Outcome

	// Object is the open blob for OutcomeOK, nil otherwise. The caller owns it
	// and must close it, see Close.
	Object *store.Object

	// Reason is a message safe to show to the client. It never contains
	// backend detail or the rejected name.
	Reason string

	// Err is the full error for operators. It wraps one of the package
	// sentinel errors and must not be shown to clients.
	Err error
}

// Close releases the blob stream, if any. It is safe to call on every result.
func (r Result) Close() error {
	if r.Object == nil {
		return nil
	}
	return r.Object.Close()
}
