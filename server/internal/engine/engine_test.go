package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/server/internal/ingest"
	"github.com/radartrack/radartrack/server/internal/store"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func obs(id int, signal float64, class types.Classification) types.Observation {
	return types.Observation{
		ID:             id,
		X:              1000,
		Y:              2000,
		Velocity:       250,
		Heading:        90,
		Class:          class,
		SignalStrength: signal,
		ObservedAt:     t0,
	}
}

type harness struct {
	q   *ingest.Queue
	st  *store.Store
	eng *Engine
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	q := ingest.New(100, 25)
	st := store.New(30 * time.Second)
	st.SetClock(fixedClock(t0))
	eng := New(q, st, opts)
	eng.SetClock(fixedClock(t0))
	return &harness{q: q, st: st, eng: eng}
}

func TestNew_Defaults(t *testing.T) {
	e := New(nil, nil, Options{})
	assert.Equal(t, DefaultInterval, e.interval)
	assert.Equal(t, DefaultExpiryWindow, e.expiry)
	assert.Equal(t, DefaultMaxBatch, e.maxBatch)
}

func TestTick_MergesAndStampsRecordedAt(t *testing.T) {
	h := newHarness(t, Options{})
	require.True(t, h.q.Submit(obs(1, 80, types.Aircraft)))

	rep := h.eng.Tick(t0)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 0, rep.Errors)

	got, ok := h.st.Get(1)
	require.True(t, ok)
	assert.Equal(t, t0, got.RecordedAt)
}

func TestTick_AdmissionScenario(t *testing.T) {
	h := newHarness(t, Options{})
	h.q.Submit(obs(1, 80, types.Aircraft))
	h.q.Submit(obs(2, 10, types.Ship))

	h.eng.Tick(t0)

	active := h.st.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, 1, active[0].ID)

	byType, total := h.st.CountActiveByType()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, byType[types.Aircraft])
	assert.Zero(t, byType[types.Ship])
}

func TestTick_LastWriteWins(t *testing.T) {
	h := newHarness(t, Options{})
	first := obs(7, 50, types.Vehicle)
	second := obs(7, 60, types.Vehicle)
	second.X = 9999
	h.q.Submit(first)
	h.q.Submit(second)

	h.eng.Tick(t0)

	got, ok := h.st.Get(7)
	require.True(t, ok)
	assert.Equal(t, 9999.0, got.X)
	assert.Equal(t, 1, h.st.Len())
}

func TestTick_BoundedBatch(t *testing.T) {
	h := newHarness(t, Options{MaxBatch: 3})
	for i := 1; i <= 5; i++ {
		h.q.Submit(obs(i, 50, types.Aircraft))
	}

	rep := h.eng.Tick(t0)
	assert.Equal(t, 3, rep.Processed)
	assert.Equal(t, 2, h.q.Depth())

	rep = h.eng.Tick(t0.Add(50 * time.Millisecond))
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 0, h.q.Depth())
}

func TestTick_ExpiryBound(t *testing.T) {
	h := newHarness(t, Options{ExpiryWindow: 30 * time.Second})
	h.q.Submit(obs(5, 70, types.Missile))
	h.eng.Tick(t0)

	rep := h.eng.Tick(t0.Add(29 * time.Second))
	assert.Equal(t, 0, rep.Evicted)
	_, ok := h.st.Get(5)
	assert.True(t, ok, "still inside expiry window")

	rep = h.eng.Tick(t0.Add(30 * time.Second))
	assert.Equal(t, 1, rep.Evicted)
	_, ok = h.st.Get(5)
	assert.False(t, ok, "age reached expiry window")
}

func TestTick_RefreshKeepsTargetAlive(t *testing.T) {
	h := newHarness(t, Options{ExpiryWindow: 30 * time.Second})
	h.q.Submit(obs(5, 70, types.Missile))
	h.eng.Tick(t0)

	h.q.Submit(obs(5, 70, types.Missile))
	h.eng.Tick(t0.Add(20 * time.Second))

	h.eng.Tick(t0.Add(40 * time.Second))
	_, ok := h.st.Get(5)
	assert.True(t, ok)
}

func TestTick_ObserversReceiveReport(t *testing.T) {
	var got []CycleReport
	h := newHarness(t, Options{Observers: []Observer{func(r CycleReport) { got = append(got, r) }}})
	h.q.Submit(obs(1, 80, types.Aircraft))

	h.eng.Tick(t0)
	h.eng.Tick(t0.Add(time.Second))

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Processed)
	assert.Equal(t, 0, got[1].Processed)
	assert.Equal(t, t0, got[0].CompletedAt)
}

func TestTick_DurationUsesClock(t *testing.T) {
	h := newHarness(t, Options{})
	var calls int
	h.eng.SetClock(func() time.Time {
		calls++
		return t0.Add(time.Duration(calls) * 4 * time.Millisecond)
	})

	rep := h.eng.Tick(t0)
	assert.Equal(t, 4*time.Millisecond, rep.Duration)
}

// faultyStore panics when asked to upsert a chosen id and optionally on evict.
type faultyStore struct {
	mu         sync.Mutex
	data       map[int]types.Observation
	badID      int
	panicEvict bool
}

func (f *faultyStore) Upsert(o types.Observation) bool {
	if o.ID == f.badID {
		panic("corrupt record")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[o.ID]
	f.data[o.ID] = o
	return !ok
}

func (f *faultyStore) Evict(time.Time) []types.Observation {
	if f.panicEvict {
		panic("sweep failed")
	}
	return nil
}

func TestTick_ItemFailureIsIsolated(t *testing.T) {
	q := ingest.New(10, 0)
	fs := &faultyStore{data: map[int]types.Observation{}, badID: 2}
	eng := New(q, fs, Options{})
	eng.SetClock(fixedClock(t0))

	for i := 1; i <= 3; i++ {
		q.Submit(obs(i, 50, types.Ship))
	}

	rep := eng.Tick(t0)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Errors)
	assert.Contains(t, fs.data, 1)
	assert.Contains(t, fs.data, 3)
	assert.NotContains(t, fs.data, 2)
}

func TestTick_SweepFailureIsIsolated(t *testing.T) {
	q := ingest.New(10, 0)
	fs := &faultyStore{data: map[int]types.Observation{}, panicEvict: true}
	eng := New(q, fs, Options{})
	eng.SetClock(fixedClock(t0))
	q.Submit(obs(1, 50, types.Ship))

	rep := eng.Tick(t0)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, 1, rep.Errors)

	q.Submit(obs(4, 50, types.Ship))
	rep = eng.Tick(t0.Add(time.Second))
	assert.Equal(t, 1, rep.Processed, "later ticks still run")
}

func TestTick_ObserverPanicIsIsolated(t *testing.T) {
	var after atomic.Int64
	h := newHarness(t, Options{Observers: []Observer{
		func(CycleReport) { panic("observer boom") },
		func(CycleReport) { after.Add(1) },
	}})

	require.NotPanics(t, func() { h.eng.Tick(t0) })
	require.NotPanics(t, func() { h.eng.Tick(t0.Add(time.Second)) })
	assert.Equal(t, int64(2), after.Load(), "observers after the panicking one still run")
	assert.Equal(t, uint64(2), h.eng.ObserverPanics())
}

func TestRun_SurvivesPanickingObserver(t *testing.T) {
	var calls atomic.Int64
	q := ingest.New(10, 0)
	eng := New(q, store.New(time.Minute), Options{
		Interval: 5 * time.Millisecond,
		Observers: []Observer{func(CycleReport) {
			if calls.Add(1) == 1 {
				panic("observer boom")
			}
		}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond,
		"ticks continue after an observer panic")
	cancel()
	<-done
}

func TestRun_StopsOnCancel(t *testing.T) {
	var ticks atomic.Int64
	q := ingest.New(10, 0)
	st := store.New(time.Minute)
	eng := New(q, st, Options{
		Interval:  5 * time.Millisecond,
		Observers: []Observer{func(CycleReport) { ticks.Add(1) }},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after Run returned")
}

func TestRun_CancelledBeforeStartDoesNotTouchStore(t *testing.T) {
	q := ingest.New(10, 0)
	st := store.New(time.Minute)
	eng := New(q, st, Options{Interval: time.Millisecond})
	q.Submit(obs(1, 50, types.Ship))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng.Run(ctx)

	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 1, q.Depth())
}
