package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radartrack/radartrack/pkg/types"
)

// shardCount must be a power of two.
const shardCount = 32

type shard struct {
	mu   sync.RWMutex
	data map[int]types.Observation
}

// Store is a concurrent id → Observation table.
type Store struct {
	shards       [shardCount]shard
	size         atomic.Int64
	activeWindow time.Duration
	now          func() time.Time // injectable for deterministic tests
}

// New creates an empty Store. Entries count as active while younger than
// activeWindow.
func New(activeWindow time.Duration) *Store {
	s := &Store{activeWindow: activeWindow, now: time.Now}
	for i := range s.shards {
		s.shards[i].data = make(map[int]types.Observation)
	}
	return s
}

// SetClock replaces the clock used by the active-window filter.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// ActiveWindow returns the liveness window used by the List* methods.
func (s *Store) ActiveWindow() time.Duration { return s.activeWindow }

func (s *Store) shardFor(id int) *shard {
	return &s.shards[uint(id)&(shardCount-1)]
}

// Upsert inserts obs or replaces the current entry for obs.ID. It reports
// whether a new target was created.
//
// RecordedAt never moves backwards for an id: if obs carries an earlier
// RecordedAt than the stored entry, the stored timestamp is kept.
func (s *Store) Upsert(obs types.Observation) (created bool) {
	sh := s.shardFor(obs.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev, ok := sh.data[obs.ID]
	if ok && obs.RecordedAt.Before(prev.RecordedAt) {
		obs.RecordedAt = prev.RecordedAt
	}
	sh.data[obs.ID] = obs
	if !ok {
		s.size.Add(1)
	}
	return !ok
}

// Get returns the stored observation for id, active or not.
func (s *Store) Get(id int) (types.Observation, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	obs, ok := sh.data[id]
	return obs, ok
}

// Remove deletes id. It reports whether an entry was present.
func (s *Store) Remove(id int) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.data[id]; !ok {
		return false
	}
	delete(sh.data, id)
	s.size.Add(-1)
	return true
}

// Evict removes every entry whose RecordedAt is at or before cutoff and
// returns the removed observations. Shards are swept one at a time.
func (s *Store) Evict(cutoff time.Time) []types.Observation {
	var removed []types.Observation
	s.EvictFunc(cutoff, func(obs types.Observation) {
		removed = append(removed, obs)
	})
	return removed
}

// EvictFunc is Evict without the result slice: fn is called for each removed
// entry while its shard is locked, so fn must not call back into the Store.
// It returns the number of entries removed.
func (s *Store) EvictFunc(cutoff time.Time, fn func(types.Observation)) int {
	n := 0
	for i := range s.shards {
		n += s.evictShard(&s.shards[i], cutoff, fn)
	}
	return n
}

// evictShard releases the shard lock and settles the size counter even if fn
// panics part way through.
func (s *Store) evictShard(sh *shard, cutoff time.Time, fn func(types.Observation)) (n int) {
	sh.mu.Lock()
	defer func() {
		s.size.Add(-int64(n))
		sh.mu.Unlock()
	}()
	for id, obs := range sh.data {
		if obs.RecordedAt.After(cutoff) {
			continue
		}
		delete(sh.data, id)
		n++
		fn(obs)
	}
	return n
}

// Len returns the number of stored entries, including ones past the active
// window that have not been evicted yet.
func (s *Store) Len() int {
	return int(s.size.Load())
}

// ListActive returns copies of all active entries ordered by descending
// signal strength, ties broken by ascending id.
func (s *Store) ListActive() []types.Observation {
	return s.collect(func(types.Observation) bool { return true })
}

// ListActiveByType is ListActive restricted to one classification.
func (s *Store) ListActiveByType(class types.Classification) []types.Observation {
	return s.collect(func(o types.Observation) bool { return o.Class == class })
}

// CountActiveByType returns the number of active entries per classification
// and the total.
func (s *Store) CountActiveByType() (map[types.Classification]int, int) {
	now := s.now()
	counts := make(map[types.Classification]int)
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, obs := range sh.data {
			if obs.IsActive(now, s.activeWindow) {
				counts[obs.Class]++
				total++
			}
		}
		sh.mu.RUnlock()
	}
	return counts, total
}

func (s *Store) collect(keep func(types.Observation) bool) []types.Observation {
	now := s.now()
	out := make([]types.Observation, 0, s.Len())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, obs := range sh.data {
			if obs.IsActive(now, s.activeWindow) && keep(obs) {
				out = append(out, obs)
			}
		}
		sh.mu.RUnlock()
	}
	sortBySignal(out)
	return out
}

func sortBySignal(obs []types.Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].SignalStrength != obs[j].SignalStrength {
			return obs[i].SignalStrength > obs[j].SignalStrength
		}
		return obs[i].ID < obs[j].ID
	})
}
