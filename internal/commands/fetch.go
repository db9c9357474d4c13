package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/buildkite/blobstream/internal/api"
	"github.com/buildkite/blobstream/internal/key"
	"github.com/buildkite/blobstream/internal/trace"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type FetchCmd struct {
	Name     string `arg:"" help:"Name of the blob to download." required:"true"`
	Endpoint string `flag:"endpoint" help:"Base URL of a running blobstream server." default:"http://localhost:8080" env:"BLOBSTREAM_ENDPOINT"`
	Output   string `flag:"output" short:"o" help:"File to write the blob to, - for stdout. Defaults to the blob name."`
}

func (cmd *FetchCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, span := trace.Start(ctx, "FetchCmdRun")
	defer span.End()

	span.SetAttributes(attribute.String("blob_name", cmd.Name))

	// fail fast without a round trip
	if err := key.Validate(cmd.Name); err != nil {
		return trace.NewError(span, "invalid blob name %q, expected %s: %w", cmd.Name, key.Format, err)
	}

	output := cmd.Output
	if output == "" {
		output = cmd.Name
	}

	var w io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return trace.NewError(span, "failed to create output file %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	client := api.NewClient(ctx, globals.Version, cmd.Endpoint)

	b, err := client.StreamBlob(ctx, cmd.Name, w)
	if err != nil {
		if output != "-" {
			_ = os.Remove(output)
		}
		return trace.NewError(span, "failed to fetch blob: %w", err)
	}

	log.Debug().Str("request_id", b.Transfer.RequestID).Msg("blob fetched")

	globals.Printer.Success("✅", "Downloaded %s", cmd.Name)

	globals.Printer.Table("📊", "Fetch summary", [][2]string{
		{"Blob", cmd.Name},
		{"Output", output},
		{"Content Type", b.ContentType},
		{"Size", humanize.Bytes(Int64ToUint64(b.Transfer.BytesTransferred))},
		{"Last Modified", b.LastModified},
		{"Transfer Speed", fmt.Sprintf("%.2fMB/s", b.Transfer.TransferSpeed)},
		{"Duration", b.Transfer.Duration.String()},
	})

	return nil
}
