// Package model contains domain models passed between layers.
package model

import "time"

// Default rating for a freshly ingested wallpaper.
const DefaultRating = 1000

// Wallpaper represents one archived image and its competitive standing.
type Wallpaper struct {
	ID          string    // stable unique identifier
	Title       string    // display title, optional
	FileName    string    // original upload name, optional
	Fingerprint string    // 16-hex-char dHash; empty until the backfill computes it
	Rating      int       // Elo-style rating, default 1000
	Wins        int       // contests won; monotonically non-decreasing
	Losses      int       // contests lost; monotonically non-decreasing
	CreatedAt   time.Time // ingestion time
}

// Battles returns the number of contests this wallpaper has been part of.
func (w Wallpaper) Battles() int {
	return w.Wins + w.Losses
}

// Vote represents a single pairwise contest outcome. Only its effect on the
// two wallpaper records persists; the vote itself is transient.
type Vote struct {
	VoteID    string // unique id for idempotency
	WinnerID  string
	LoserID   string
	ElapsedMS *int64 // time the voter took; nil when the outcome is untimed
}

// FingerprintJob asks the backfill workers to compute a fingerprint.
type FingerprintJob struct {
	ItemID string
}
