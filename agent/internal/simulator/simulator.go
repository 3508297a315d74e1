package simulator

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radartrack/radartrack/pkg/types"
)

const (
	firstTargetID = 4001
	spawnIDBase   = 3000
	spawnIDSpan   = 1000

	// stepSeconds is the dead-reckoning time step applied on every Step call.
	stepSeconds = 0.5

	initialSpan = 40_000.0 // initial positions in [-40km, 40km]
	boundMeters = 100_000.0
	resetSpan   = 30_000.0 // out-of-bounds targets reappear in [-30km, 30km]

	minVelocity = 50.0
	maxVelocity = 600.0

	headingJitter  = 5.0  // total spread, ±2.5°
	velocityJitter = 10.0 // total spread, ±5 m/s
)

// Options configures a Simulator.
type Options struct {
	InitialTargets   int
	MaxTargets       int
	SpawnProbability float64
	StationID        string

	// Seed fixes the random source. 0 seeds from the clock.
	Seed int64
}

// Simulator moves a set of synthetic targets by dead reckoning.
//
// All exported methods are safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	runID   string
	opts    Options
	targets map[int]*types.Observation
}

// New returns a Simulator populated with opts.InitialTargets targets numbered
// from 4001.
func New(opts Options) *Simulator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulator{
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // not crypto
		runID:   uuid.NewString(),
		opts:    opts,
		targets: make(map[int]*types.Observation, opts.MaxTargets),
	}
	for i := 0; i < opts.InitialTargets; i++ {
		s.add(firstTargetID+i, initialSpan)
	}
	return s
}

// RunID identifies this simulator instance in logs and request metadata.
func (s *Simulator) RunID() string {
	return s.runID
}

// SetMaxTargets changes the spawn cap. Existing targets are kept even when
// the new cap is lower.
func (s *Simulator) SetMaxTargets(n int) {
	s.mu.Lock()
	s.opts.MaxTargets = n
	s.mu.Unlock()
}

// Len returns the number of simulated targets.
func (s *Simulator) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}

// Step advances every target by one time step, possibly spawns a new one,
// and returns observations stamped with now, ordered by id.
func (s *Simulator) Step(now time.Time) []types.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.ids() {
		s.move(s.targets[id])
	}
	if len(s.targets) < s.opts.MaxTargets && s.rng.Float64() < s.opts.SpawnProbability {
		id := spawnIDBase + s.rng.Intn(spawnIDSpan)
		if _, taken := s.targets[id]; !taken {
			s.add(id, initialSpan)
		}
	}

	ids := s.ids()
	out := make([]types.Observation, len(ids))
	for i, id := range ids {
		out[i] = *s.targets[id]
		out[i].ObservedAt = now
	}
	return out
}

// ids returns target ids in ascending order so random draws are consumed in a
// stable sequence.
func (s *Simulator) ids() []int {
	ids := make([]int, 0, len(s.targets))
	for id := range s.targets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Simulator) move(t *types.Observation) {
	rad := t.Heading * math.Pi / 180
	t.X += t.Velocity * math.Cos(rad) * stepSeconds
	t.Y += t.Velocity * math.Sin(rad) * stepSeconds

	t.Heading = types.NormalizeHeading(t.Heading + (s.rng.Float64()-0.5)*headingJitter)
	t.Velocity += (s.rng.Float64() - 0.5) * velocityJitter
	t.Velocity = math.Max(minVelocity, math.Min(maxVelocity, t.Velocity))

	if math.Abs(t.X) > boundMeters || math.Abs(t.Y) > boundMeters {
		t.X = s.symmetric(resetSpan)
		t.Y = s.symmetric(resetSpan)
	}
}

// add must be called with s.mu held (or before s is shared).
func (s *Simulator) add(id int, span float64) {
	s.targets[id] = &types.Observation{
		ID:             id,
		X:              s.symmetric(span),
		Y:              s.symmetric(span),
		Velocity:       100 + s.rng.Float64()*400,
		Heading:        s.rng.Float64() * 360,
		Class:          types.Classification(1 + s.rng.Intn(4)),
		SignalStrength: 60 + s.rng.Float64()*40,
		StationID:      s.opts.StationID,
	}
}

func (s *Simulator) symmetric(span float64) float64 {
	return s.rng.Float64()*2*span - span
}
