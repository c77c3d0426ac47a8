package testing

import (
	"testing"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// NewTestLogger creates a logger that writes to t.Logf.
func NewTestLogger(t testing.TB) types.Logger {
	return logging.NewTest(t)
}
