package server

import (
	"net/http"
	"time"

	"github.com/buildkite/blobstream"
	"github.com/buildkite/blobstream/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterOptions toggles optional middleware.
type RouterOptions struct {
	// Gzip compresses blob bodies for clients that accept it. Off by default
	// because most stored objects are already compressed.
	Gzip bool
}

// NewRouter wires the stream, health and metrics routes.
func NewRouter(logger zerolog.Logger, svc *blobstream.Service, m *metrics.Metrics, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(otelhttp.NewMiddleware("blobstream",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	stream := &streamHandler{svc: svc, metrics: m}

	if opts.Gzip {
		r.With(gzipMiddleware).Get(StreamBlobRoute, stream.ServeHTTP)
	} else {
		r.Get(StreamBlobRoute, stream.ServeHTTP)
	}

	r.Get("/healthz", HealthCheck)
	r.Head("/healthz", HealthCheck)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}

func gzipMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
