package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buildkite/blobstream/internal/store"
	"github.com/buildkite/blobstream/internal/trace"
	"github.com/google/go-querystring/query"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const StreamBlobPath = "/api/stream-blob"

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidName  = errors.New("invalid blob name")
)

// isJSONContentType checks if the content type indicates JSON response
// Handles cases like "application/json" and "application/json; charset=utf-8"
func isJSONContentType(contentType string) bool {
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	return strings.HasPrefix(contentType, "application/json")
}

// Error is a non-200 reply from the stream endpoint.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed with status: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Unwrap maps 404 and 400 replies onto ErrBlobNotFound and ErrInvalidName.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrBlobNotFound
	case http.StatusBadRequest:
		return ErrInvalidName
	}
	return nil
}

type Client struct {
	client   *http.Client
	endpoint string
}

type StreamBlobReq struct {
	BlobName string `url:"blob_name"`
}

// Blob describes a downloaded blob.
type Blob struct {
	ContentType   string
	ContentLength int64 // -1 when the server did not send one
	LastModified  string
	Transfer      *store.TransferInfo
}

type errorResp struct {
	Error string `json:"error"`
}

func NewClient(ctx context.Context, version, endpoint string) Client {
	client := &http.Client{}

	client.Transport = gzhttp.Transport(roundTripperFunc(
		func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			req.Header.Set("User-Agent", fmt.Sprint("blobstream/", version))
			return http.DefaultTransport.RoundTrip(req)
		}),
	)

	return Client{client: client, endpoint: strings.TrimSuffix(endpoint, "/")}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (fn roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}

// StreamBlob downloads name and copies it to w as it arrives.
func (c Client) StreamBlob(ctx context.Context, name string, w io.Writer) (*Blob, error) {
	ctx, span := trace.Start(ctx, "Client.StreamBlob")
	defer span.End()

	span.SetAttributes(attribute.String("blob_name", name))

	start := time.Now()

	u, err := url.Parse(c.endpoint + StreamBlobPath)
	if err != nil {
		return nil, trace.NewError(span, "failed to parse url: %w", err)
	}

	v, err := query.Values(StreamBlobReq{BlobName: name})
	if err != nil {
		return nil, trace.NewError(span, "failed to encode query: %w", err)
	}
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, trace.NewError(span, "failed to create request: %w", err)
	}

	log.Debug().Str("url", u.String()).Msg("streaming blob")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, trace.NewError(span, "failed to do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, trace.NewError(span, "failed to stream blob: %w", decodeError(res))
	}

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return nil, trace.NewError(span, "failed to read blob body after %d bytes: %w", n, err)
	}

	info := store.NewTransferInfo(n, start)
	info.RequestID = res.Header.Get("X-Request-Id")

	span.SetAttributes(
		attribute.Int64("bytes_transferred", n),
		attribute.String("transfer_speed", fmt.Sprintf("%.2fMB/s", info.TransferSpeed)),
	)

	return &Blob{
		ContentType:   res.Header.Get("Content-Type"),
		ContentLength: res.ContentLength,
		LastModified:  res.Header.Get("Last-Modified"),
		Transfer:      info,
	}, nil
}

func decodeError(res *http.Response) error {
	apiErr := &Error{StatusCode: res.StatusCode}

	if !isJSONContentType(res.Header.Get("Content-Type")) {
		return apiErr
	}

	var body errorResp
	if err := json.NewDecoder(io.LimitReader(res.Body, 64*1024)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}

	return apiErr
}
