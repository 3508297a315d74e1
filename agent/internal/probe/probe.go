package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// QueueDepthMetric is the gauge the server exports for its ingest queue.
const QueueDepthMetric = "radartrack_ingest_queue_depth"

const defaultScrapeTimeout = 5 * time.Second

// Probe tracks whether the server's ingest queue is above a ceiling.
type Probe struct {
	url      string
	maxDepth float64
	client   *http.Client

	paused    atomic.Bool
	lastDepth atomic.Uint64 // math.Float64bits
}

// New returns a Probe that scrapes url and pauses above maxDepth.
func New(url string, maxDepth float64) *Probe {
	return &Probe{
		url:      url,
		maxDepth: maxDepth,
		client:   &http.Client{Timeout: defaultScrapeTimeout},
	}
}

// Paused reports whether emission should be held back.
func (p *Probe) Paused() bool {
	return p.paused.Load()
}

// LastDepth returns the queue depth seen by the most recent successful check.
func (p *Probe) LastDepth() float64 {
	return math.Float64frombits(p.lastDepth.Load())
}

// Check scrapes once and updates the pause state.
func (p *Probe) Check(ctx context.Context) (float64, error) {
	mfs, err := fetchMetrics(ctx, p.client, p.url)
	if err != nil {
		p.setPaused(false, 0)
		return 0, fmt.Errorf("probe: %w", err)
	}
	mf, ok := mfs[QueueDepthMetric]
	if !ok {
		p.setPaused(false, 0)
		return 0, fmt.Errorf("probe: metric %s not found", QueueDepthMetric)
	}
	depth := sumFamily(mf)
	p.lastDepth.Store(math.Float64bits(depth))
	p.setPaused(depth > p.maxDepth, depth)
	return depth, nil
}

func (p *Probe) setPaused(v bool, depth float64) {
	if p.paused.Swap(v) != v {
		slog.Info("probe: emission pause changed", "paused", v, "queue_depth", depth, "ceiling", p.maxDepth)
	}
}

// Run checks every interval until ctx is cancelled.
func (p *Probe) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Check(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("probe: check failed", "url", p.url, "err", err)
			}
		}
	}
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition. A partial parse that
// still yields families counts as success.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
