package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"satellite-telemetry/internal/metrics"
	"satellite-telemetry/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCounter struct {
	calls  atomic.Int32
	counts map[models.Status]int64
	err    error
}

func (f *fakeCounter) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	f.calls.Add(1)
	return f.counts, f.err
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestStatsWorkerPublishesGauges(t *testing.T) {
	counter := &fakeCounter{counts: map[models.Status]int64{
		models.StatusHealthy:  7,
		models.StatusCritical: 2,
	}}
	w := NewStatsWorker(counter, nil, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return counter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, 7.0, gaugeValue(t, metrics.TelemetryRecords.WithLabelValues("healthy")))
	assert.Equal(t, 2.0, gaugeValue(t, metrics.TelemetryRecords.WithLabelValues("critical")))
}

func TestSchedulerRunsStatsWorker(t *testing.T) {
	counter := &fakeCounter{err: errors.New("db down")}
	s := NewScheduler(zap.NewNop())
	s.AddWorker(NewStatsWorker(counter, nil, 5*time.Millisecond, zap.NewNop()))

	s.Start(context.Background())
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return counter.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

type stubbornWorker struct {
	release chan struct{}
}

func (w *stubbornWorker) Name() string { return "stubborn" }

func (w *stubbornWorker) Run(ctx context.Context) {
	<-w.release
}

func TestSchedulerStopTimeout(t *testing.T) {
	w := &stubbornWorker{release: make(chan struct{})}
	defer close(w.release)

	s := NewScheduler(zap.NewNop())
	s.stopTimeout = 20 * time.Millisecond
	s.AddWorker(w)
	s.Start(context.Background())

	assert.ErrorIs(t, s.Stop(), ErrStopTimeout)
	assert.NoError(t, s.Stop())
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.Stop())

	// A stopped scheduler does not start.
	s.Start(context.Background())
	assert.False(t, s.IsRunning())
}

func TestSchedulerParentCancel(t *testing.T) {
	counter := &fakeCounter{counts: map[models.Status]int64{}}
	s := NewScheduler(zap.NewNop())
	s.AddWorker(NewStatsWorker(counter, nil, time.Hour, zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	require.NoError(t, s.Stop())
}
