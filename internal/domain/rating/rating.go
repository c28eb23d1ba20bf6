// Package rating computes Elo-style rating updates for pairwise contests.
package rating

import (
	"math"
)

// Default rating configuration constants.
const (
	defaultProvisionalK       = 64 // rating swing cap during the provisional period
	defaultStandardK          = 32
	defaultProvisionalBattles = 10 // contests before a side leaves the provisional period

	// Vote-time damping bounds. Votes cast faster than fastVoteMS are
	// treated as low-signal (spam or reflex) and swing half as far; votes
	// slower than slowVoteMS lose a little weight too.
	fastVoteMS       = 800
	slowVoteMS       = 10000
	slowVoteFactor   = 0.9
	expectationScale = 400
)

// Standing is the competitive state of one side of a contest.
type Standing struct {
	Rating int
	Wins   int
	Losses int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithKFactors overrides the provisional and standard K-factors.
func WithKFactors(provisional, standard int) Option {
	return func(e *Engine) {
		if provisional > 0 && standard > 0 {
			e.provisionalK = provisional
			e.standardK = standard
		}
	}
}

// WithProvisionalBattles sets how many contests keep a side provisional.
func WithProvisionalBattles(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.provisionalBattles = n
		}
	}
}

// WithFloor clamps both output ratings at floor. The reference behavior has
// no floor (ratings may go negative); enabling one is an explicit choice.
func WithFloor(floor int) Option {
	return func(e *Engine) {
		e.floorEnabled = true
		e.floor = floor
	}
}

// Engine computes rating updates. It is pure and stateless: deterministic
// given its inputs, safe for concurrent use.
type Engine struct {
	provisionalK       int
	standardK          int
	provisionalBattles int
	floorEnabled       bool
	floor              int
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		provisionalK:       defaultProvisionalK,
		standardK:          defaultStandardK,
		provisionalBattles: defaultProvisionalBattles,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Update returns the new ratings for the winner and loser of one contest.
// elapsedMS is the voter's decision time; nil skips damping entirely (for
// outcomes not sourced from a timed UI). The caller owns persisting both
// records atomically and incrementing the win/loss tallies alongside.
func (e *Engine) Update(winner, loser Standing, elapsedMS *int64) (newWinner, newLoser int) {
	// Effective K is the mean of both sides' K. Rounding happens only at
	// the final delta step, not mid-calculation.
	k := float64(e.kFor(winner)+e.kFor(loser)) / 2

	if elapsedMS != nil {
		switch {
		case *elapsedMS < fastVoteMS:
			k = math.Round(k / 2)
		case *elapsedMS > slowVoteMS:
			k = math.Round(k * slowVoteFactor)
		}
	}

	// Both deltas are driven by the winner's expectation: the winner gains
	// k*(1-expectWin) and the loser drops k*expectWin. The two sides only
	// mirror each other when the ratings are equal.
	expectWin := 1 / (1 + math.Pow(10, float64(loser.Rating-winner.Rating)/expectationScale))

	newWinner = int(math.Round(float64(winner.Rating) + k*(1-expectWin)))
	newLoser = int(math.Round(float64(loser.Rating) - k*expectWin))

	if e.floorEnabled {
		newWinner = max(newWinner, e.floor)
		newLoser = max(newLoser, e.floor)
	}
	return newWinner, newLoser
}

func (e *Engine) kFor(s Standing) int {
	if s.Wins+s.Losses < e.provisionalBattles {
		return e.provisionalK
	}
	return e.standardK
}
