// Package health evaluates the tracker's coarse health from queue depth and
// store size.
//
// Evaluate is a pure function over a Sample. The Reporter adds the process
// uptime, a timestamp and the current thresholds, which can be swapped at
// runtime when the config file changes.
//
// Status values:
//
//	healthy    both ceilings respected, store below the warning watermark
//	degraded   both ceilings respected, store above the warning watermark
//	unhealthy  store size or queue depth at or above its ceiling
package health
