package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGeneration(t *testing.T) {
	before := testutil.ToFloat64(GenerationsTotal.WithLabelValues("ok"))
	ObserveGeneration(0.01, 3, 1, 7)

	assert.Equal(t, before+1, testutil.ToFloat64(GenerationsTotal.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(LastPairs))
	assert.Equal(t, 1.0, testutil.ToFloat64(LastUnpaired))
	assert.Equal(t, 7.0, testutil.ToFloat64(LastEligibleEdges))
}

func TestRegistryGathers(t *testing.T) {
	GenerationFailed(0.2)
	families, err := Registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["rps_schedule_generations_total"])
	assert.True(t, names["rps_schedule_generation_duration_seconds"])
}
