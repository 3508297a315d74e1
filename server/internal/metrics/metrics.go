package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/server/internal/engine"
	"github.com/radartrack/radartrack/server/internal/ingest"
	"github.com/radartrack/radartrack/server/internal/receiver"
)

const namespace = "radartrack"

// Source is the tracker state read at scrape time.
type Source interface {
	QueueDepth() int
	QueueCapacity() int
	StoreSize() int
	IngestCounters() ingest.Counters
	CountActiveByType() (map[types.Classification]int, int)
}

// Metrics owns a private registry for the tracker's series.
type Metrics struct {
	reg *prometheus.Registry
	col *collector

	cycleDuration prometheus.Histogram
	cycles        prometheus.Counter
	cycleErrors   prometheus.Counter
	processed     prometheus.Counter
	evicted       prometheus.Counter
}

// New registers the tracker collectors plus the Go runtime and process
// collectors.
func New(src Source) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		col: newCollector(src),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of processing cycles.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Processing cycles completed.",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Item or sweep failures recovered inside processing cycles.",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_processed_total",
			Help:      "Observations merged into the target store.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_evicted_total",
			Help:      "Targets removed by the expiry sweep.",
		}),
	}
	m.reg.MustRegister(
		m.col,
		m.cycleDuration,
		m.cycles,
		m.cycleErrors,
		m.processed,
		m.evicted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCycle records one processing cycle. It satisfies engine.Observer.
func (m *Metrics) ObserveCycle(r engine.CycleReport) {
	m.cycleDuration.Observe(r.Duration.Seconds())
	m.cycles.Inc()
	m.cycleErrors.Add(float64(r.Errors))
	m.processed.Add(float64(r.Processed))
	m.evicted.Add(float64(r.Evicted))
}

// AddReceiver exposes a receiver's counters under the given transport label.
func (m *Metrics) AddReceiver(transport string, stats func() receiver.Stats) {
	m.col.addReceiver(transport, stats)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

type receiverSource struct {
	transport string
	stats     func() receiver.Stats
}

// collector turns tracker state into const metrics on every scrape.
type collector struct {
	src Source

	mu        sync.Mutex
	receivers []receiverSource

	queueDepth    *prometheus.Desc
	queueCapacity *prometheus.Desc
	submissions   *prometheus.Desc
	storeTargets  *prometheus.Desc
	activeTargets *prometheus.Desc
	packets       *prometheus.Desc
}

func newCollector(src Source) *collector {
	return &collector{
		src: src,
		queueDepth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ingest", "queue_depth"),
			"Observations waiting for the next processing cycle.", nil, nil),
		queueCapacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ingest", "queue_capacity"),
			"Ingest queue bound.", nil, nil),
		submissions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ingest", "submissions_total"),
			"Submissions to the ingest queue by result.", []string{"result"}, nil),
		storeTargets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "targets"),
			"Targets held in the store, including ones awaiting the sweep.", nil, nil),
		activeTargets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_targets"),
			"Active targets by classification.", []string{"type"}, nil),
		packets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "packets_total"),
			"Packets seen by feed receivers by result.", []string{"transport", "result"}, nil),
	}
}

func (c *collector) addReceiver(transport string, stats func() receiver.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receivers = append(c.receivers, receiverSource{transport: transport, stats: stats})
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueDepth
	ch <- c.queueCapacity
	ch <- c.submissions
	ch <- c.storeTargets
	ch <- c.activeTargets
	ch <- c.packets
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(c.src.QueueDepth()))
	ch <- prometheus.MustNewConstMetric(c.queueCapacity, prometheus.GaugeValue, float64(c.src.QueueCapacity()))
	ch <- prometheus.MustNewConstMetric(c.storeTargets, prometheus.GaugeValue, float64(c.src.StoreSize()))

	ic := c.src.IngestCounters()
	for _, v := range []struct {
		result string
		n      uint64
	}{
		{"accepted", ic.Accepted},
		{"below_threshold", ic.BelowThreshold},
		{"queue_full", ic.QueueFull},
		{"malformed", ic.Malformed},
	} {
		ch <- prometheus.MustNewConstMetric(c.submissions, prometheus.CounterValue, float64(v.n), v.result)
	}

	byType, _ := c.src.CountActiveByType()
	for _, class := range types.Classifications {
		ch <- prometheus.MustNewConstMetric(c.activeTargets, prometheus.GaugeValue, float64(byType[class]), class.String())
	}

	c.mu.Lock()
	receivers := append([]receiverSource(nil), c.receivers...)
	c.mu.Unlock()
	for _, r := range receivers {
		s := r.stats()
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(s.Received), r.transport, "received")
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(s.Malformed), r.transport, "malformed")
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(s.Accepted), r.transport, "accepted")
	}
}
