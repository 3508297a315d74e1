// Package ingest implements the admission queue between feed producers and
// the processing cycle.
//
// Submit never blocks and never returns an error: observations below the
// admission threshold, structurally invalid ones, and ones arriving while the
// buffer is full are dropped and counted. Drain is called only by the
// processing cycle and removes at most n items in arrival order.
package ingest
