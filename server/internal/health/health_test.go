package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/radartrack/radartrack/server/internal/ingest"
)

func TestEvaluate(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name        string
		sample      Sample
		wantHealthy bool
		wantWarning bool
		wantStatus  Status
	}{
		{"idle", Sample{}, true, false, StatusHealthy},
		{"at warning watermark", Sample{StoreSize: 500}, true, false, StatusHealthy},
		{"above warning watermark", Sample{StoreSize: 501}, true, true, StatusDegraded},
		{"store just below ceiling", Sample{StoreSize: 999}, true, true, StatusDegraded},
		{"store at ceiling", Sample{StoreSize: 1000}, false, true, StatusUnhealthy},
		{"queue just below ceiling", Sample{QueueDepth: 499}, true, false, StatusHealthy},
		{"queue at ceiling", Sample{QueueDepth: 500}, false, false, StatusUnhealthy},
		{"queue over ceiling", Sample{QueueDepth: 600, StoreSize: 10}, false, false, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Evaluate(tc.sample, th)
			assert.Equal(t, tc.wantHealthy, r.IsHealthy)
			assert.Equal(t, tc.wantWarning, r.Warning)
			assert.Equal(t, tc.wantStatus, r.Status)
			if tc.wantWarning {
				assert.Equal(t, 1, r.WarningCount)
			} else {
				assert.Zero(t, r.WarningCount)
			}
		})
	}
}

func TestEvaluate_CarriesCounters(t *testing.T) {
	s := Sample{
		QueueDepth:  3,
		StoreSize:   7,
		CycleErrors: 2,
		Ingest:      ingest.Counters{Accepted: 10, QueueFull: 1},
	}
	r := Evaluate(s, DefaultThresholds())
	assert.Equal(t, 3, r.QueueDepth)
	assert.Equal(t, 7, r.StoreSize)
	assert.Equal(t, uint64(2), r.ErrorCount)
	assert.Equal(t, uint64(10), r.Ingest.Accepted)
	assert.Equal(t, uint64(1), r.Ingest.QueueFull)
}

func TestReporter_TimestampAndUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReporter(DefaultThresholds(), start)

	rep := r.Report(Sample{}, start.Add(90*time.Second))
	assert.Equal(t, start.Add(90*time.Second), rep.Timestamp)
	assert.InDelta(t, 90.0, rep.UptimeSeconds, 1e-9)
}

func TestReporter_SetThresholds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReporter(DefaultThresholds(), now)
	s := Sample{QueueDepth: 50}
	assert.True(t, r.Report(s, now).IsHealthy)

	r.SetThresholds(Thresholds{MaxStoredTargets: 1000, MaxQueueDepth: 10, WarnStoredTargets: 500})
	rep := r.Report(s, now)
	assert.False(t, rep.IsHealthy)
	assert.Equal(t, 10, rep.Thresholds.MaxQueueDepth)
}

func TestReporter_ConcurrentSwap(t *testing.T) {
	now := time.Now()
	r := NewReporter(DefaultThresholds(), now)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.SetThresholds(Thresholds{MaxStoredTargets: 1000 + n, MaxQueueDepth: 500, WarnStoredTargets: 500})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Report(Sample{}, now)
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, r.Thresholds().MaxStoredTargets, 1000)
}
