package blobstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildkite/blobstream/internal/key"
	"github.com/buildkite/blobstream/internal/store"
	"github.com/buildkite/blobstream/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client-facing messages. Backend and configuration messages are deliberately
// generic; validation messages state what a caller should send instead.
const (
	msgMissingName   = "Missing required parameter: " + ParamBlobName
	msgInvalidName   = "Invalid blob name pattern. Expected format: " + key.Format + ". Example: " + key.Example
	msgNotFound      = "Blob not found"
	msgConfig        = "Server configuration error: %s"
	msgInternalError = "Internal server error"
)

// Service resolves blob names against one container.
type Service struct {
	cfg    Config
	reader store.Reader
}

// New creates a Service.
//
// reader may be nil when cfg is incomplete: the server still starts, and every
// call to Open reports OutcomeConfigError naming the missing setting.
func New(cfg Config, reader store.Reader) *Service {
	return &Service{cfg: cfg, reader: reader}
}

// Open validates name and opens the blob for streaming.
//
// The steps run in order and the first failure wins:
//  1. configuration check (OutcomeConfigError)
//  2. empty name (OutcomeInvalidName)
//  3. pattern check (OutcomeInvalidName); the store is never called
//  4. backend open: not found (OutcomeNotFound), anything else
//     (OutcomeBackendError)
//
// The store call uses ctx, so a cancelled request abandons a slow backend.
// On OutcomeOK the caller must close the result.
func (s *Service) Open(ctx context.Context, name string) Result {
	ctx, span := trace.Start(ctx, "Service.Open")
	defer span.End()

	res := s.open(ctx, name)

	span.SetAttributes(attribute.String("blob.outcome", res.Outcome.String()))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Outcome.String())
	}

	return res
}

func (s *Service) open(ctx context.Context, name string) Result {
	if err := s.cfg.Validate(); err != nil {
		var missing *MissingSettingError
		reason := fmt.Sprintf(msgConfig, "missing setting")
		if errors.As(err, &missing) {
			reason = fmt.Sprintf(msgConfig, missing.Error())
		}
		return Result{Outcome: OutcomeConfigError, Reason: reason, Err: err}
	}

	if err := key.Validate(name); err != nil {
		reason := msgInvalidName
		if errors.Is(err, key.ErrMissing) {
			reason = msgMissingName
		}
		return Result{
			Outcome: OutcomeInvalidName,
			Reason:  reason,
			Err:     fmt.Errorf("%w: %w", ErrInvalidName, err),
		}
	}

	if s.reader == nil {
		return Result{
			Outcome: OutcomeBackendError,
			Reason:  msgInternalError,
			Err:     fmt.Errorf("%w: storage client not initialised", ErrBackend),
		}
	}

	log.Ctx(ctx).Debug().Str("blob_name", name).Str("container", s.cfg.Container).Msg("opening blob")

	obj, err := s.reader.NewReader(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{
				Outcome: OutcomeNotFound,
				Reason:  msgNotFound,
				Err:     fmt.Errorf("%w: %w", ErrNotFound, err),
			}
		}
		return Result{
			Outcome: OutcomeBackendError,
			Reason:  msgInternalError,
			Err:     fmt.Errorf("%w: %w", ErrBackend, err),
		}
	}

	if obj.ContentType == "" {
		obj.ContentType = DefaultContentType
	}

	return Result{Outcome: OutcomeOK, Object: obj}
}
