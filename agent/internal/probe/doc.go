// Package probe watches the server's Prometheus endpoint for ingest backpressure.
//
// Probe.Run scrapes metrics_url on an interval, parses the text exposition
// with prometheus/common/expfmt, and sums radartrack_ingest_queue_depth.
// While the depth exceeds the configured ceiling Paused reports true and the
// agent skips emission. Scrape failures clear the pause so an unreachable
// server never stalls the simulator.
package probe
