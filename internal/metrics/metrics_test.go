package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsMutationsAndRefreshes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Mutation("increment", OutcomeApplied)
	m.Mutation("increment", OutcomeApplied)
	m.Mutation("increment", OutcomeSkipped)
	m.Refresh(nil, 3, 4.5)
	m.Refresh(errors.New("down"), 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("increment", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("increment", OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.items), "failed refresh keeps the last count")
	assert.Equal(t, 4.5, testutil.ToFloat64(m.total))

	n, err := testutil.GatherAndCount(reg, "cartsync_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Mutation("clear", OutcomeApplied)
		m.Refresh(nil, 1, 1)
	})
}
