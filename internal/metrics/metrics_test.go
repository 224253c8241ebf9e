package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-auth/internal/metrics"
)

func TestNilMetricsRecordsNothing(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveAttempt("local", "admitted", "")
		m.ObserveDirectoryBind(time.Second)
		m.ObserveRestore("rejected", "session_invalid")
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveAttempt("local", "rejected", "bad_credential")
	m.ObserveAttempt("local", "rejected", "bad_credential")
	m.ObserveAttempt("bearer", "admitted", "")
	m.ObserveDirectoryBind(150 * time.Millisecond)
	m.ObserveRestore("admitted", "")

	count, err := testutil.GatherAndCount(reg, "auth_attempts_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "auth_directory_bind_seconds", "session_restores_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.Panics(t, func() { metrics.New(reg) }, "collectors register once per registry")
}
