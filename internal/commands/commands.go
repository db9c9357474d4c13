package commands

import (
	"math"

	"github.com/buildkite/blobstream/internal/console"
)

type Globals struct {
	Debug   bool
	Version string
	Printer *console.Printer
}

// Int64ToUint64 converts an int64 to uint64, handling negative values and max int64
func Int64ToUint64(x int64) uint64 {
	if x < 0 {
		return 0
	}
	if x == math.MaxInt64 {
		return math.MaxUint64
	}
	return uint64(x)
}
