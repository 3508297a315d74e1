package store

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radartrack/radartrack/pkg/types"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func obs(id int, signal float64, class types.Classification, recorded time.Time) types.Observation {
	return types.Observation{
		ID:             id,
		X:              float64(id) * 100,
		Y:              float64(id) * 50,
		Velocity:       120,
		Class:          class,
		SignalStrength: signal,
		RecordedAt:     recorded,
	}
}

func newStore() *Store {
	st := New(30 * time.Second)
	st.SetClock(fixedClock(base))
	return st
}

func ids(list []types.Observation) []int {
	out := make([]int, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}

func TestUpsertAndGet(t *testing.T) {
	st := newStore()
	created := st.Upsert(obs(1, 80, types.Aircraft, base))
	assert.True(t, created)

	got, ok := st.Get(1)
	require.True(t, ok)
	assert.Equal(t, types.Aircraft, got.Class)
	assert.Equal(t, 80.0, got.SignalStrength)
}

func TestGet_Missing(t *testing.T) {
	_, ok := newStore().Get(42)
	assert.False(t, ok)
}

func TestUpsert_LatestWins(t *testing.T) {
	st := newStore()
	st.Upsert(obs(7, 50, types.Ship, base))
	created := st.Upsert(obs(7, 90, types.Vehicle, base.Add(time.Second)))

	assert.False(t, created)
	assert.Equal(t, 1, st.Len())
	got, _ := st.Get(7)
	assert.Equal(t, types.Vehicle, got.Class)
	assert.Equal(t, 90.0, got.SignalStrength)
}

func TestUpsert_Idempotent(t *testing.T) {
	st := newStore()
	o := obs(3, 60, types.Ship, base)
	for i := 0; i < 5; i++ {
		st.Upsert(o)
	}
	assert.Equal(t, 1, st.Len())
	got, _ := st.Get(3)
	assert.Equal(t, o, got)
	assert.Len(t, st.ListActiveByType(types.Ship), 1)
}

func TestUpsert_RecordedAtNeverRegresses(t *testing.T) {
	st := newStore()
	st.Upsert(obs(9, 60, types.Ship, base.Add(5*time.Second)))
	st.Upsert(obs(9, 70, types.Ship, base))

	got, _ := st.Get(9)
	assert.Equal(t, base.Add(5*time.Second), got.RecordedAt)
	assert.Equal(t, 70.0, got.SignalStrength)
}

func TestListActive_Ordering(t *testing.T) {
	st := newStore()
	st.Upsert(obs(4, 50, types.Ship, base))
	st.Upsert(obs(2, 90, types.Aircraft, base))
	st.Upsert(obs(3, 50, types.Vehicle, base))
	st.Upsert(obs(1, 70, types.Missile, base))

	want := []int{2, 1, 3, 4}
	if diff := cmp.Diff(want, ids(st.ListActive())); diff != "" {
		t.Errorf("ListActive order (-want +got):\n%s", diff)
	}
}

func TestListActive_ExcludesStale(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base.Add(-31*time.Second)))
	st.Upsert(obs(2, 80, types.Aircraft, base.Add(-29*time.Second)))

	assert.Equal(t, []int{2}, ids(st.ListActive()))
	// Stale entries are still counted until evicted.
	assert.Equal(t, 2, st.Len())
}

func TestListActiveByType(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base))
	st.Upsert(obs(2, 60, types.Ship, base))
	st.Upsert(obs(3, 95, types.Aircraft, base))

	assert.Equal(t, []int{3, 1}, ids(st.ListActiveByType(types.Aircraft)))
	assert.Empty(t, st.ListActiveByType(types.Missile))
	assert.NotNil(t, st.ListActiveByType(types.Missile))
}

func TestListActive_ReturnsCopies(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base))

	list := st.ListActive()
	list[0].SignalStrength = 1

	got, _ := st.Get(1)
	assert.Equal(t, 80.0, got.SignalStrength)
}

func TestCountActiveByType(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base))
	st.Upsert(obs(2, 60, types.Aircraft, base))
	st.Upsert(obs(3, 60, types.Ship, base))
	st.Upsert(obs(4, 60, types.Ship, base.Add(-time.Minute)))

	counts, total := st.CountActiveByType()
	assert.Equal(t, 3, total)
	assert.Equal(t, map[types.Classification]int{types.Aircraft: 2, types.Ship: 1}, counts)
}

func TestRemove(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base))

	assert.True(t, st.Remove(1))
	assert.False(t, st.Remove(1))
	assert.Equal(t, 0, st.Len())
}

func TestEvict_RemovesAtOrBeforeCutoff(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base.Add(-40*time.Second)))
	st.Upsert(obs(2, 80, types.Aircraft, base.Add(-30*time.Second)))
	st.Upsert(obs(3, 80, types.Aircraft, base.Add(-10*time.Second)))

	removed := st.Evict(base.Add(-30 * time.Second))
	assert.ElementsMatch(t, []int{1, 2}, ids(removed))
	assert.Equal(t, 1, st.Len())
	_, ok := st.Get(3)
	assert.True(t, ok)
}

func TestEvict_NoOp_AllLive(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base))
	assert.Empty(t, st.Evict(base.Add(-30*time.Second)))
	assert.Equal(t, 1, st.Len())
}

func TestEvictFunc_PanicReleasesShard(t *testing.T) {
	st := newStore()
	// 1 and 1+shardCount land in the same shard.
	st.Upsert(obs(1, 80, types.Aircraft, base.Add(-time.Minute)))
	st.Upsert(obs(1+shardCount, 80, types.Aircraft, base.Add(-time.Minute)))

	require.Panics(t, func() {
		st.EvictFunc(base, func(types.Observation) { panic("evict boom") })
	})
	assert.Equal(t, 1, st.Len(), "the entry removed before the panic is accounted for")

	done := make(chan struct{})
	go func() {
		st.Upsert(obs(1, 90, types.Aircraft, base))
		st.Get(1 + shardCount)
		st.Evict(base.Add(-30 * time.Second))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shard still locked after a panicking sweep")
	}
}

func TestEvictFunc_Count(t *testing.T) {
	st := newStore()
	st.Upsert(obs(1, 80, types.Aircraft, base.Add(-40*time.Second)))
	st.Upsert(obs(2, 80, types.Ship, base))

	var seen []int
	n := st.EvictFunc(base.Add(-30*time.Second), func(o types.Observation) { seen = append(seen, o.ID) })
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1}, seen)
	assert.Equal(t, 1, st.Len())
}

func TestNegativeIDs(t *testing.T) {
	st := newStore()
	st.Upsert(obs(-5, 80, types.Aircraft, base))
	_, ok := st.Get(-5)
	assert.True(t, ok)
	assert.True(t, st.Remove(-5))
}

func TestConcurrentUpserts_SameID(t *testing.T) {
	st := newStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			st.Upsert(obs(1, float64(n), types.Aircraft, base))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, st.Len())
}

func TestConcurrentMixedOps(t *testing.T) {
	st := newStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			st.Upsert(obs(n, 60, types.Ship, base))
		}(i)
		go func() {
			defer wg.Done()
			st.ListActive()
		}()
		go func(n int) {
			defer wg.Done()
			st.Get(n)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, st.Len())
}
