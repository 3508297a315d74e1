// Package stats derives tracking statistics from the target store and the
// processing cycle's timing.
//
// The Aggregator keeps the rolling cycle state (cycle count, smoothed cycle
// time, recent per-cycle samples) behind one narrow mutex that is held only
// while that state is updated or copied. Target counts are taken from the
// store after the lock is released, so a Statistics call never holds the
// mutex while iterating targets.
//
// Smoothing: avg = (avg + current) / 2, seeded at 0.
// Throughput: items merged during the trailing window divided by the window
// length, so the figure decays to 0 when the feed goes idle.
package stats
