package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/radartrack/radartrack/pkg/types"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultInterval     = 50 * time.Millisecond
	DefaultExpiryWindow = 30 * time.Second
	DefaultMaxBatch     = 100
)

// Source yields pending observations, oldest first.
type Source interface {
	Drain(max int) []types.Observation
}

// TargetStore is the part of the store the cycle writes to.
type TargetStore interface {
	Upsert(obs types.Observation) bool
	Evict(cutoff time.Time) []types.Observation
}

// CycleReport summarises one tick.
type CycleReport struct {
	Processed   int
	Created     int
	Evicted     int
	Errors      int
	Duration    time.Duration
	CompletedAt time.Time
}

// Observer receives every CycleReport. Observers run on the cycle goroutine
// and must not block.
type Observer func(CycleReport)

// Options configures an Engine.
type Options struct {
	Interval     time.Duration
	ExpiryWindow time.Duration
	MaxBatch     int
	Observers    []Observer
}

// Engine merges queued observations into the store on a fixed interval.
type Engine struct {
	src       Source
	store     TargetStore
	interval  time.Duration
	expiry    time.Duration
	maxBatch  int
	observers []Observer
	now       func() time.Time // injectable for deterministic tests

	observerPanics atomic.Uint64
}

// New wires an Engine to its queue and store.
func New(src Source, st TargetStore, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ExpiryWindow <= 0 {
		opts.ExpiryWindow = DefaultExpiryWindow
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	return &Engine{
		src:       src,
		store:     st,
		interval:  opts.Interval,
		expiry:    opts.ExpiryWindow,
		maxBatch:  opts.MaxBatch,
		observers: opts.Observers,
		now:       time.Now,
	}
}

// SetClock replaces the clock used to measure cycle duration.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Interval returns the tick period.
func (e *Engine) Interval() time.Duration { return e.interval }

// Tick runs one processing cycle as of now and returns its report.
func (e *Engine) Tick(now time.Time) CycleReport {
	start := e.now()
	var rep CycleReport

	for _, obs := range e.src.Drain(e.maxBatch) {
		obs.RecordedAt = now
		created, err := e.merge(obs)
		if err != nil {
			rep.Errors++
			slog.Error("engine: merge failed", "target_id", obs.ID, "err", err)
			continue
		}
		rep.Processed++
		if created {
			rep.Created++
		}
	}

	evicted, err := e.sweep(now.Add(-e.expiry))
	if err != nil {
		rep.Errors++
		slog.Error("engine: sweep failed", "err", err)
	}
	rep.Evicted = evicted

	rep.CompletedAt = e.now()
	rep.Duration = rep.CompletedAt.Sub(start)
	if rep.Evicted > 0 {
		slog.Debug("engine: evicted expired targets", "count", rep.Evicted)
	}
	for i, fn := range e.observers {
		e.notify(i, fn, rep)
	}
	return rep
}

// notify delivers rep to one observer. A panicking observer is logged and
// counted; the remaining observers and later ticks still run.
func (e *Engine) notify(i int, fn Observer, rep CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			e.observerPanics.Add(1)
			slog.Error("engine: observer panicked", "observer", i, "panic", fmt.Sprint(r))
		}
	}()
	fn(rep)
}

// ObserverPanics returns how many observer calls have panicked.
func (e *Engine) ObserverPanics() uint64 { return e.observerPanics.Load() }

func (e *Engine) merge(obs types.Observation) (created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: upsert target %d: panic: %v", obs.ID, r)
		}
	}()
	return e.store.Upsert(obs), nil
}

func (e *Engine) sweep(cutoff time.Time) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: evict: panic: %v", r)
		}
	}()
	return len(e.store.Evict(cutoff)), nil
}

// Run ticks every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	t := time.NewTicker(e.interval)
	defer t.Stop()

	slog.Info("engine: started", "interval", e.interval, "expiry_window", e.expiry, "max_batch", e.maxBatch)
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: stopped")
			return
		case now := <-t.C:
			if ctx.Err() != nil {
				slog.Info("engine: stopped")
				return
			}
			e.Tick(now)
		}
	}
}
