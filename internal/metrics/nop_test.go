package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FrancoYudica/DistributedFractals/types"
)

func TestNopMetrics(t *testing.T) {
	m := NewNop()

	require.NotPanics(t, func() {
		m.RecordStateTransition(types.JobStateDispatching, types.JobStateDraining, 1.5)
		m.RecordStateTransition(types.JobState(999), types.JobState(1000), -1.0)
		m.RecordTaskDispatched("worker-0")
		m.RecordTaskCompleted("worker-0", 1024)
		m.RecordJobDuration(0)
		m.RecordBlockRender("", -1)
		m.RecordOutput("disk", 0, false)
	})
}
