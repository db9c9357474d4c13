package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildkite/blobstream"
	"github.com/buildkite/blobstream/internal/metrics"
	"github.com/buildkite/blobstream/internal/server"
	"github.com/buildkite/blobstream/internal/store"
	"github.com/buildkite/blobstream/internal/trace"
	"github.com/rs/zerolog/log"
)

type ServeCmd struct {
	StorageAccount  string        `flag:"storage-account" help:"The storage account name." env:"STORAGE_ACCOUNT_NAME"`
	Container       string        `flag:"container" help:"The container blobs are served from." env:"CONTAINER_NAME"`
	ClientID        string        `flag:"client-id" help:"Client ID of a user-assigned managed identity. Defaults to the platform identity." env:"MANAGED_IDENTITY_CLIENT_ID"`
	EndpointSuffix  string        `flag:"endpoint-suffix" help:"The blob service domain." default:"blob.core.windows.net" env:"AZURE_STORAGE_ENDPOINT_SUFFIX"`
	Prefix          string        `flag:"prefix" help:"Virtual directory inside the container." env:"BLOBSTREAM_PREFIX"`
	BucketURL       string        `flag:"bucket-url" help:"Serve from a gocloud.dev bucket URL such as file:///tmp/blobs instead of Azure." env:"BLOBSTREAM_BUCKET_URL" hidden:""`
	Listen          string        `flag:"listen" help:"The address to listen on." default:":8080" env:"BLOBSTREAM_LISTEN"`
	Port            int           `flag:"port" help:"Port to listen on all interfaces, takes precedence over --listen. Set by the Functions host for custom handlers." env:"FUNCTIONS_CUSTOMHANDLER_PORT"`
	Gzip            bool          `flag:"gzip" help:"Compress responses for clients that accept gzip." env:"BLOBSTREAM_GZIP"`
	ShutdownTimeout time.Duration `flag:"shutdown-timeout" help:"How long in-flight streams may drain on shutdown." default:"30s" env:"BLOBSTREAM_SHUTDOWN_TIMEOUT"`
}

func (cmd *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := cmd.config()

	reader, err := cmd.openStore(ctx, cfg, globals.Version)
	if err != nil {
		return err
	}
	if closer, ok := reader.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	m := metrics.New()
	router := server.NewRouter(log.Logger, blobstream.New(cfg, reader), m, server.RouterOptions{Gzip: cmd.Gzip})

	srv := server.New(log.Logger, router, server.Options{
		Addr:            cmd.addr(),
		ShutdownTimeout: cmd.ShutdownTimeout,
	})

	globals.Printer.Info("🚀", "serving container %q on %s", cfg.Container, cmd.addr())

	return srv.Run(ctx)
}

func (cmd *ServeCmd) config() blobstream.Config {
	return blobstream.Config{
		StorageAccount: cmd.StorageAccount,
		Container:      cmd.Container,
		ClientID:       cmd.ClientID,
		EndpointSuffix: cmd.EndpointSuffix,
		Prefix:         cmd.Prefix,
	}
}

// openStore returns a nil reader, not an error, for incomplete configuration:
// the server starts anyway and reports the missing setting on each request.
func (cmd *ServeCmd) openStore(ctx context.Context, cfg blobstream.Config, version string) (store.Reader, error) {
	ctx, span := trace.Start(ctx, "ServeCmd.openStore")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		var missing *blobstream.MissingSettingError
		if errors.As(err, &missing) {
			log.Warn().Str("setting", missing.Setting).Msg("required setting missing, every request will fail with 500")
		}
		return nil, nil
	}

	if cmd.BucketURL != "" {
		b, err := store.NewGocloudBlob(ctx, cmd.BucketURL, cfg.Prefix)
		if err != nil {
			return nil, trace.NewError(span, "failed to open bucket url: %w", err)
		}
		log.Warn().Str("bucket_url", cmd.BucketURL).Msg("serving from bucket url instead of azure")
		return b, nil
	}

	b, err := store.NewAzureBlob(ctx, cfg.AzureConfig("blobstream/"+version))
	if err != nil {
		return nil, trace.NewError(span, "failed to open azure container: %w", err)
	}

	return b, nil
}

func (cmd *ServeCmd) addr() string {
	if cmd.Port > 0 {
		return fmt.Sprintf(":%d", cmd.Port)
	}
	return cmd.Listen
}
