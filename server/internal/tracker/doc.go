// Package tracker assembles the tracking core: ingest queue, target store,
// processing engine, statistics aggregator and health reporter.
//
// Producers call Submit. Readers call ListActive, Get, ListActiveByType,
// Statistics and Health. Run drives the processing cycle until the context is
// cancelled. Every query returns copies; nothing returned aliases internal
// state.
package tracker
