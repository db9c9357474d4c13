package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/buildkite/blobstream"
	"github.com/buildkite/blobstream/internal/metrics"
	"github.com/buildkite/blobstream/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// StreamBlobRoute is the single public route.
const StreamBlobRoute = "/api/stream-blob"

// copyBufferSize bounds each read from the store and each write to the client.
const copyBufferSize = 32 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, copyBufferSize)
		return &buf
	},
}

type streamHandler struct {
	svc     *blobstream.Service
	metrics *metrics.Metrics
}

// ServeHTTP resolves the blob_name query parameter and relays the blob.
//
// Errors found before the status line is written produce a complete JSON
// error response. Once the 200 has been sent there is no way to report a
// failure, so a broken stream aborts the connection instead.
func (h *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logger := hlog.FromRequest(r)

	name := r.URL.Query().Get(blobstream.ParamBlobName)

	res := h.svc.Open(ctx, name)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Debug().Err(err).Msg("failed to close blob reader")
		}
	}()

	if res.Outcome != blobstream.OutcomeOK {
		logOutcome(logger, r, res)
		h.metrics.ObserveRequest(res.Outcome.String(), start)
		writeError(w, statusFor(res.Outcome), res.Reason)
		return
	}

	obj := res.Object

	header := w.Header()
	header.Set("Content-Type", obj.ContentType)
	if obj.Size >= 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		header.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	// the name passed validation, so it is plain ASCII without quotes
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	bufp := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufp)

	cw := &countingWriter{w: w}
	_, err := io.CopyBuffer(cw, readerOnly{obj}, *bufp)

	h.metrics.AddBytes(cw.n)

	if err != nil {
		h.metrics.StreamAborted()
		h.metrics.ObserveRequest("aborted", start)

		evt := logger.Error()
		msg := "blob stream failed mid-transfer"
		if cw.err != nil || ctx.Err() != nil {
			evt = logger.Warn()
			msg = "client went away mid-transfer"
		}
		evt.Err(err).
			Str("blob_name", name).
			Int64("bytes_written", cw.n).
			Int64("blob_size", obj.Size).
			Msg(msg)

		// the status line is gone; cut the connection so the client sees a
		// truncated response rather than a short but well-formed one
		panic(http.ErrAbortHandler)
	}

	info := store.NewTransferInfo(cw.n, start)

	h.metrics.ObserveRequest(res.Outcome.String(), start)

	logger.Info().
		Str("blob_name", name).
		Str("content_type", obj.ContentType).
		Int64("bytes", info.BytesTransferred).
		Str("size", humanize.Bytes(uint64(info.BytesTransferred))).
		Str("transfer_speed", strconv.FormatFloat(info.TransferSpeed, 'f', 2, 64)+"MB/s").
		Dur("duration", info.Duration).
		Msg("blob streamed")
}

func statusFor(outcome blobstream.Outcome) int {
	switch outcome {
	case blobstream.OutcomeOK:
		return http.StatusOK
	case blobstream.OutcomeInvalidName:
		return http.StatusBadRequest
	case blobstream.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func logOutcome(logger *zerolog.Logger, r *http.Request, res blobstream.Result) {
	var evt *zerolog.Event
	switch res.Outcome {
	case blobstream.OutcomeInvalidName, blobstream.OutcomeNotFound:
		evt = logger.Info()
	case blobstream.OutcomeBackendError:
		if r.Context().Err() != nil {
			evt = logger.Warn()
		} else {
			evt = logger.Error()
		}
	default:
		evt = logger.Error()
	}

	// the rejected name stays out of the log for invalid input
	if res.Outcome != blobstream.OutcomeInvalidName {
		evt = evt.Str("blob_name", r.URL.Query().Get(blobstream.ParamBlobName))
	}

	evt.Err(res.Err).Str("outcome", res.Outcome.String()).Msg("blob request failed")
}

// readerOnly hides any WriterTo so io.CopyBuffer uses our bounded buffer.
type readerOnly struct {
	io.Reader
}

// countingWriter hides any ReaderFrom on the response writer and records how
// much reached the client, and whether the client side failed.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		c.err = err
	}
	return n, err
}
