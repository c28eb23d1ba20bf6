// Package match selects comparison pairs biased toward competitive closeness.
package match

import (
	"math/rand"
	"sync"
	"time"
)

// Default matchmaking configuration constants.
const (
	defaultRatingWindow = 400 // preferred |rating(a) - rating(b)| for item_b
)

// Candidate is one wallpaper eligible for matchmaking.
type Candidate struct {
	ID     string
	Rating int
}

// Option applies a configuration option to the Matchmaker.
type Option func(*Matchmaker)

// WithRatingWindow sets the competitive-closeness window for the second pick.
func WithRatingWindow(window int) Option {
	return func(m *Matchmaker) {
		if window > 0 {
			m.window = window
		}
	}
}

// WithRandSource sets the random source, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(m *Matchmaker) {
		if src != nil {
			m.rng = rand.New(src) //nolint:gosec // matchmaking needs no crypto randomness
		}
	}
}

// Matchmaker picks pairs from a candidate snapshot. It is stateless across
// calls: the exclusion set ("recently seen") is session state owned by the
// caller, which grows and trims it. Concurrent calls may legitimately return
// overlapping pairs; any dedup beyond the exclusion set is the UI's problem.
type Matchmaker struct {
	window int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Matchmaker with configuration options.
func New(opts ...Option) *Matchmaker {
	m := &Matchmaker{
		window: defaultRatingWindow,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // matchmaking needs no crypto randomness
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NextPair picks two distinct candidates from pool. The first pick is uniform
// over non-excluded candidates, ignoring exclusions when they would empty the
// pool so the arena degrades gracefully instead of stalling. The second pick
// prefers candidates within the rating window of the first, then any
// non-excluded candidate, then anything but the first pick itself as a last
// resort. ErrInsufficientPopulation is returned only when the pool itself has
// fewer than two candidates.
func (m *Matchmaker) NextPair(pool []Candidate, exclude map[string]struct{}) (a, b Candidate, err error) {
	if len(pool) < 2 {
		return Candidate{}, Candidate{}, ErrInsufficientPopulation
	}

	eligible := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if _, skip := exclude[c.ID]; !skip {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		eligible = pool
	}

	a = eligible[m.intn(len(eligible))]

	// Preferred: competitively close, not excluded.
	var close, fallback, lastResort []Candidate
	for _, c := range pool {
		if c.ID == a.ID {
			continue
		}
		lastResort = append(lastResort, c)
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		fallback = append(fallback, c)
		if diff := c.Rating - a.Rating; diff >= -m.window && diff <= m.window {
			close = append(close, c)
		}
	}

	switch {
	case len(close) > 0:
		b = close[m.intn(len(close))]
	case len(fallback) > 0:
		b = fallback[m.intn(len(fallback))]
	default:
		b = lastResort[m.intn(len(lastResort))]
	}
	return a, b, nil
}

// InWindow reports whether the pair is inside the competitive window. Used
// by callers to count fallback pairs.
func (m *Matchmaker) InWindow(a, b Candidate) bool {
	diff := a.Rating - b.Rating
	return diff >= -m.window && diff <= m.window
}

func (m *Matchmaker) intn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Intn(n)
}
