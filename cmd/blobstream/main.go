package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/buildkite/blobstream/internal/commands"
	"github.com/buildkite/blobstream/internal/console"
	"github.com/buildkite/blobstream/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	version = "dev"

	cli struct {
		Version       kong.VersionFlag
		Debug         bool            `help:"Enable debug mode." default:"false" env:"BLOBSTREAM_DEBUG"`
		TraceExporter string          `flag:"trace-exporter" help:"The trace exporter to use. Defaults to 'noop'." default:"noop" enum:"${exporters}" env:"BLOBSTREAM_TRACE_EXPORTER"`
		Config        kong.ConfigFlag `flag:"config" help:"Path to a YAML or JSON configuration file." env:"BLOBSTREAM_CONFIG"`

		Serve    commands.ServeCmd    `cmd:"" default:"1" help:"serve blobs over http."`
		Fetch    commands.FetchCmd    `cmd:"" help:"download a blob from a running server."`
		Validate commands.ValidateCmd `cmd:"" help:"check blob names against the naming pattern."`
	}
)

func main() {
	ctx := context.Background()

	// Overloads `cli` with configuration file values.
	cmd := kong.Parse(&cli,
		kong.Name("blobstream"),
		kong.Description("Stream named blobs from a cloud storage container over HTTP."),
		kong.Vars{
			"version":   version,
			"exporters": strings.Join(trace.Exporters, ","),
		},
		kong.Configuration(kongyaml.Loader),
		kong.BindTo(ctx, (*context.Context)(nil)))

	err := Run(ctx, cmd)
	cmd.FatalIfErrorf(err)
}

func Run(ctx context.Context, cmd *kong.Context) error {
	start := time.Now()

	configureLogging(cli.Debug)

	tp, err := trace.NewProvider(ctx, cli.TraceExporter, "github.com/buildkite/blobstream", version)
	if err != nil {
		return fmt.Errorf("failed to create trace provider: %w", err)
	}
	defer func() {
		_ = tp.Shutdown(ctx)
	}()

	printer := console.NewPrinter(os.Stderr)

	err = cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Printer: printer})
	if err != nil {
		return fmt.Errorf("command %s failed: %w", cmd.Command(), err)
	}

	log.Debug().Str("command", cmd.Command()).Dur("duration", time.Since(start)).Msg("completed")

	return nil
}

// configureLogging writes JSON for log collectors by default and a readable
// console format in debug mode.
func configureLogging(debug bool) {
	if debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.DebugLevel)
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	}

	// loggers pulled from a context without one fall back to the global logger
	zerolog.DefaultContextLogger = &log.Logger
}
