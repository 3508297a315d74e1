// Package store holds the live target table: the latest admitted Observation
// for each target id.
//
// The table is split into fixed shards, each guarded by its own RWMutex, so a
// reader of one target is never blocked by a write to a target in another
// shard, and writes to the same id are serialized by that id's shard lock.
// Every read returns copies; no iterator over internal state ever escapes.
//
// Liveness (IsActive) is evaluated at read time against the active window;
// removal of stale entries is the processing cycle's job (Evict).
package store
