// Package engine runs the fixed-rate processing cycle.
//
// Every tick the engine drains a bounded batch from the ingest queue, stamps
// each observation with the cycle time and merges it into the target store,
// then sweeps entries whose age has reached the expiry window. Failures while
// merging a single item or while sweeping are recovered, logged and counted;
// they never abort the tick or the loop.
//
// Run owns the ticker. Cancellation is observed between ticks, and a tick
// delivered after the context is done is discarded before it touches the store.
package engine
