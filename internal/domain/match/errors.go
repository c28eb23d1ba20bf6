package match

import "errors"

// Sentinel kinds for matchmaking errors.
var (
	// ErrInsufficientPopulation means fewer than two wallpapers are eligible.
	// Surfaced to users as a "not enough items yet" state, not a crash.
	ErrInsufficientPopulation = errors.New("insufficient population")
)
