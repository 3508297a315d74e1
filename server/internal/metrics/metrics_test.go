package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/server/internal/engine"
	"github.com/radartrack/radartrack/server/internal/ingest"
	"github.com/radartrack/radartrack/server/internal/receiver"
)

type fakeSource struct{}

func (fakeSource) QueueDepth() int    { return 42 }
func (fakeSource) QueueCapacity() int { return 10000 }
func (fakeSource) StoreSize() int     { return 7 }
func (fakeSource) IngestCounters() ingest.Counters {
	return ingest.Counters{Accepted: 100, BelowThreshold: 5, QueueFull: 2, Malformed: 1}
}
func (fakeSource) CountActiveByType() (map[types.Classification]int, int) {
	return map[types.Classification]int{types.Aircraft: 4, types.Ship: 2}, 6
}

func scrape(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)
	return mfs
}

func value(t *testing.T, mfs map[string]*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	mf, ok := mfs[name]
	require.True(t, ok, "family %s missing", name)
	for _, m := range mf.GetMetric() {
		if !matches(m, labels) {
			continue
		}
		switch {
		case m.Gauge != nil:
			return m.Gauge.GetValue()
		case m.Counter != nil:
			return m.Counter.GetValue()
		}
	}
	t.Fatalf("%s%v not found", name, labels)
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestCollector_StateGauges(t *testing.T) {
	mfs := scrape(t, New(fakeSource{}))

	assert.Equal(t, 42.0, value(t, mfs, "radartrack_ingest_queue_depth", nil))
	assert.Equal(t, 10000.0, value(t, mfs, "radartrack_ingest_queue_capacity", nil))
	assert.Equal(t, 7.0, value(t, mfs, "radartrack_store_targets", nil))
	assert.Equal(t, 4.0, value(t, mfs, "radartrack_active_targets", map[string]string{"type": "aircraft"}))
	assert.Equal(t, 0.0, value(t, mfs, "radartrack_active_targets", map[string]string{"type": "missile"}))
	assert.Equal(t, 2.0, value(t, mfs, "radartrack_ingest_submissions_total", map[string]string{"result": "queue_full"}))
	assert.Equal(t, 5.0, value(t, mfs, "radartrack_ingest_submissions_total", map[string]string{"result": "below_threshold"}))
}

func TestObserveCycle(t *testing.T) {
	m := New(fakeSource{})
	m.ObserveCycle(engine.CycleReport{Processed: 10, Evicted: 2, Errors: 1, Duration: 3 * time.Millisecond})
	m.ObserveCycle(engine.CycleReport{Processed: 5, Duration: time.Millisecond})

	mfs := scrape(t, m)
	assert.Equal(t, 2.0, value(t, mfs, "radartrack_cycles_total", nil))
	assert.Equal(t, 1.0, value(t, mfs, "radartrack_cycle_errors_total", nil))
	assert.Equal(t, 15.0, value(t, mfs, "radartrack_cycle_processed_total", nil))
	assert.Equal(t, 2.0, value(t, mfs, "radartrack_cycle_evicted_total", nil))

	h := mfs["radartrack_cycle_duration_seconds"].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 0.004, h.GetSampleSum(), 1e-9)
}

func TestAddReceiver(t *testing.T) {
	m := New(fakeSource{})
	m.AddReceiver("udp", func() receiver.Stats { return receiver.Stats{Received: 9, Malformed: 1, Accepted: 7} })

	mfs := scrape(t, m)
	assert.Equal(t, 9.0, value(t, mfs, "radartrack_receiver_packets_total", map[string]string{"transport": "udp", "result": "received"}))
	assert.Equal(t, 1.0, value(t, mfs, "radartrack_receiver_packets_total", map[string]string{"transport": "udp", "result": "malformed"}))
}
