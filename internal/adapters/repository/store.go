// Package repository defines the wallpaper store interface and errors.
package repository

import (
	"context"

	"github.com/okian/wallarena/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank   int
	ID     string
	Rating int
	Wins   int
	Losses int
}

// FingerprintRow is the slice of a record the duplicate finder consumes.
type FingerprintRow struct {
	ID          string
	Fingerprint string
}

// RatingRow is the slice of a record the matchmaker consumes.
type RatingRow struct {
	ID     string
	Title  string
	Rating int
}

// ContestFn computes the post-contest ratings for a winner/loser pair.
// It runs with both records loaded and must be side-effect free; the
// store applies the returned ratings and the win/loss increments as a
// single atomic step.
type ContestFn func(winner, loser model.Wallpaper) (newWinnerRating, newLoserRating int)

// Store provides read/write access to the wallpaper catalog and ratings.
type Store interface {
	// Create inserts a new wallpaper record.
	// Returns ErrExists if the id is already taken.
	Create(ctx context.Context, w model.Wallpaper) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Wallpaper, error)

	// Delete removes the record for id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// SetFingerprint stores a computed fingerprint for id.
	// Returns false if the record vanished in the meantime; backfill
	// treats that as a skip, not a failure.
	SetFingerprint(ctx context.Context, id string, fingerprint string) (bool, error)

	// MissingFingerprints returns the ids of records with no fingerprint.
	MissingFingerprints(ctx context.Context) ([]string, error)

	// Fingerprinted returns an id+fingerprint snapshot of every record
	// that has one, in creation order.
	Fingerprinted(ctx context.Context) ([]FingerprintRow, error)

	// Eligible returns an id+rating snapshot of every record, for the
	// matchmaker.
	Eligible(ctx context.Context) ([]RatingRow, error)

	// ApplyContest loads winner and loser, applies fn, and persists the
	// new ratings plus win/loss counts atomically. If either id is
	// unknown it returns ErrNotFound and leaves both records untouched.
	ApplyContest(ctx context.Context, winnerID, loserID string, fn ContestFn) error

	// Rank returns the current rank and rating for a wallpaper.
	// Returns ErrNotFound if the wallpaper is unknown.
	Rank(ctx context.Context, id string) (Entry, error)

	// TopN returns the top-N entries ordered by rating desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of wallpapers tracked.
	Count(ctx context.Context) int

	// CountFingerprinted returns how many records carry a fingerprint.
	CountFingerprinted(ctx context.Context) int

	// Version returns a counter that advances on every mutation that
	// can change duplicate-detection results (create, delete, set
	// fingerprint). Rating updates do not advance it.
	Version(ctx context.Context) uint64

	// Close releases any resources held by the store.
	Close() error
}
