package commands

import (
	"context"
	"fmt"

	"github.com/buildkite/blobstream/internal/key"
)

type ValidateCmd struct {
	Names []string `arg:"" name:"name" help:"Blob names to check." required:"true"`
}

func (c *ValidateCmd) Run(ctx context.Context, globals *Globals) error {
	invalid := 0

	for _, name := range c.Names {
		if err := key.Validate(name); err != nil {
			invalid++
			globals.Printer.Error("❌", "%q: %s", name, err)
			continue
		}
		globals.Printer.Success("✅", "%q", name)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d names do not match %s", invalid, len(c.Names), key.Format)
	}

	return nil
}
