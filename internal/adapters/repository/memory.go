package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/wallarena/internal/domain/model"
	"github.com/okian/wallarena/pkg/metrics"
)

// MemoryStore is a mutex-guarded in-memory Store implementation.
//
// Snapshots and leaderboard reads are O(n log n); the catalog sizes this
// service tracks make that a non-issue, and keeping a single flat map
// makes ApplyContest trivially atomic.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]model.Wallpaper
	order   []string // creation order, drives snapshot iteration
	version atomic.Uint64
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]model.Wallpaper),
	}
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, w model.Wallpaper) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[w.ID]; ok {
		metrics.RecordErrorByComponent("repository", "exists")
		return ErrExists
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	s.byID[w.ID] = w
	s.order = append(s.order, w.ID)
	s.version.Add(1)
	metrics.UpdateTotalWallpapers(len(s.byID))
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Wallpaper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Wallpaper{}, ErrNotFound
	}
	return w, nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.version.Add(1)
	metrics.UpdateTotalWallpapers(len(s.byID))
	return nil
}

// SetFingerprint implements Store.SetFingerprint.
func (s *MemoryStore) SetFingerprint(ctx context.Context, id string, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	w.Fingerprint = fingerprint
	s.byID[id] = w
	s.version.Add(1)
	return true, nil
}

// MissingFingerprints implements Store.MissingFingerprints.
func (s *MemoryStore) MissingFingerprints(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, id := range s.order {
		if w, ok := s.byID[id]; ok && w.Fingerprint == "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Fingerprinted implements Store.Fingerprinted.
func (s *MemoryStore) Fingerprinted(ctx context.Context) ([]FingerprintRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]FingerprintRow, 0, len(s.byID))
	for _, id := range s.order {
		if w, ok := s.byID[id]; ok && w.Fingerprint != "" {
			rows = append(rows, FingerprintRow{ID: w.ID, Fingerprint: w.Fingerprint})
		}
	}
	return rows, nil
}

// Eligible implements Store.Eligible.
func (s *MemoryStore) Eligible(ctx context.Context) ([]RatingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]RatingRow, 0, len(s.byID))
	for _, id := range s.order {
		if w, ok := s.byID[id]; ok {
			rows = append(rows, RatingRow{ID: w.ID, Title: w.Title, Rating: w.Rating})
		}
	}
	return rows, nil
}

// ApplyContest implements Store.ApplyContest.
func (s *MemoryStore) ApplyContest(ctx context.Context, winnerID, loserID string, fn ContestFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	winner, ok := s.byID[winnerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	}
	loser, ok := s.byID[loserID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	}

	newWinner, newLoser := fn(winner, loser)
	winner.Rating = newWinner
	winner.Wins++
	loser.Rating = newLoser
	loser.Losses++
	s.byID[winnerID] = winner
	s.byID[loserID] = loser
	return nil
}

// Rank implements Store.Rank.
func (s *MemoryStore) Rank(ctx context.Context, id string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[id]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	entries := s.collectAll()
	sortEntries(entries)
	assignRanksWithTies(entries)

	for _, entry := range entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

// TopN implements Store.TopN.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.collectAll()
	sortEntries(entries)
	assignRanksWithTies(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// CountFingerprinted implements Store.CountFingerprinted.
func (s *MemoryStore) CountFingerprinted(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, w := range s.byID {
		if w.Fingerprint != "" {
			n++
		}
	}
	return n
}

// Version implements Store.Version.
func (s *MemoryStore) Version(ctx context.Context) uint64 {
	return s.version.Load()
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error {
	return nil
}

// collectAll returns unranked entries; callers sort and rank.
// Assumes at least a read lock is held.
func (s *MemoryStore) collectAll() []Entry {
	entries := make([]Entry, 0, len(s.byID))
	for _, w := range s.byID {
		entries = append(entries, Entry{ID: w.ID, Rating: w.Rating, Wins: w.Wins, Losses: w.Losses})
	}
	return entries
}

// sortEntries orders by rating desc with id asc as the tie-breaker.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].ID < entries[j].ID
	})
}

// assignRanksWithTies assigns dense ranks: wallpapers with the same
// rating share a rank and the next distinct rating takes the next one.
func assignRanksWithTies(entries []Entry) {
	currentRank := 0
	for i := range entries {
		if i == 0 || entries[i].Rating != entries[i-1].Rating {
			currentRank++
		}
		entries[i].Rank = currentRank
	}
}
