package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fbworkers.net/internal/domain"
)

func TestObserveCycle(t *testing.T) {
	m := NewDiscoveryMetrics()

	m.ObserveCycle(&domain.DiscoveryCycle{
		Source:   domain.SourceBrokerage,
		Duration: 20 * time.Millisecond,
		Workers:  domain.NewWorkerSet(&domain.WorkerRecord{HostName: "a"}, &domain.WorkerRecord{HostName: "b"}),
	})
	m.ObserveCycle(&domain.DiscoveryCycle{
		Source:  domain.SourceCoordinator,
		Workers: domain.NewWorkerSet(),
		Err:     errors.New("refused"),
	})
	m.ObserveSkippedCycle()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("brokerage", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("coordinator", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.workers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewDiscoveryMetrics()
	m.ObserveSkippedCycle()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "worker_discovery_cycles_skipped_total 1")
}
