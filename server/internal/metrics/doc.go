// Package metrics exposes the tracker's state in Prometheus text format.
//
// Gauges and counters that mirror state owned elsewhere (queue depth, store
// size, ingest counters, receiver counters, active targets per type) are
// produced by a collector at scrape time. Cycle durations are observed as they
// happen through Metrics.ObserveCycle, which is registered as an engine
// observer.
//
// Exposed series:
//
//	radartrack_ingest_queue_depth
//	radartrack_ingest_queue_capacity
//	radartrack_ingest_submissions_total{result}
//	radartrack_store_targets
//	radartrack_active_targets{type}
//	radartrack_receiver_packets_total{transport,result}
//	radartrack_cycle_duration_seconds
//	radartrack_cycles_total
//	radartrack_cycle_errors_total
//	radartrack_cycle_processed_total
//	radartrack_cycle_evicted_total
package metrics
