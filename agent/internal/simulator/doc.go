// Package simulator generates synthetic radar observations.
//
// Targets start at ids 4001.. with velocity 100–500 m/s and signal 60–100,
// move by dead reckoning in 0.5s steps with small heading and velocity
// jitter, and reappear near the origin once they leave a ±100km box. Each
// step may spawn one more target (ids 3000–3999) until MaxTargets is reached.
//
// A fixed Seed makes the sequence reproducible.
package simulator
