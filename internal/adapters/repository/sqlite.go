package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/okian/wallarena/internal/domain/model"
	"github.com/okian/wallarena/pkg/metrics"
)

// SQLiteStore is a Store implementation backed by a SQLite database.
// It survives restarts; the Version counter does not, which is fine
// because it only keys an in-process cache.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	version     atomic.Uint64
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(ctx context.Context, dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s.db = db
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS wallpapers (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	file_name   TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	rating      INTEGER NOT NULL,
	wins        INTEGER NOT NULL DEFAULT 0,
	losses      INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wallpapers_rating ON wallpapers(rating DESC);
CREATE INDEX IF NOT EXISTS idx_wallpapers_fingerprint ON wallpapers(fingerprint);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Create implements Store.Create.
func (s *SQLiteStore) Create(ctx context.Context, w model.Wallpaper) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallpapers (id, title, file_name, fingerprint, rating, wins, losses, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Title, w.FileName, w.Fingerprint, w.Rating, w.Wins, w.Losses,
		w.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			metrics.RecordErrorByComponent("repository", "exists")
			return ErrExists
		}
		return fmt.Errorf("insert wallpaper: %w", err)
	}
	s.version.Add(1)
	metrics.UpdateTotalWallpapers(s.Count(ctx))
	return nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Wallpaper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, file_name, fingerprint, rating, wins, losses, created_at
		 FROM wallpapers WHERE id = ?`, id)
	w, err := scanWallpaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Wallpaper{}, ErrNotFound
	}
	if err != nil {
		return model.Wallpaper{}, fmt.Errorf("select wallpaper: %w", err)
	}
	return w, nil
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallpapers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallpaper: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wallpaper: %w", err)
	}
	if affected == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	}
	s.version.Add(1)
	metrics.UpdateTotalWallpapers(s.Count(ctx))
	return nil
}

// SetFingerprint implements Store.SetFingerprint.
func (s *SQLiteStore) SetFingerprint(ctx context.Context, id string, fingerprint string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wallpapers SET fingerprint = ? WHERE id = ?`, fingerprint, id)
	if err != nil {
		return false, fmt.Errorf("set fingerprint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set fingerprint: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	s.version.Add(1)
	return true, nil
}

// MissingFingerprints implements Store.MissingFingerprints.
func (s *SQLiteStore) MissingFingerprints(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM wallpapers WHERE fingerprint = '' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select missing fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Fingerprinted implements Store.Fingerprinted.
func (s *SQLiteStore) Fingerprinted(ctx context.Context) ([]FingerprintRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint FROM wallpapers WHERE fingerprint != '' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select fingerprinted: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FingerprintRow
	for rows.Next() {
		var r FingerprintRow
		if err := rows.Scan(&r.ID, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan fingerprint row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Eligible implements Store.Eligible.
func (s *SQLiteStore) Eligible(ctx context.Context) ([]RatingRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, rating FROM wallpapers ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select eligible: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RatingRow
	for rows.Next() {
		var r RatingRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Rating); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyContest implements Store.ApplyContest. Both records are loaded
// and written inside one transaction so a concurrent vote never sees a
// half-applied contest.
func (s *SQLiteStore) ApplyContest(ctx context.Context, winnerID, loserID string, fn ContestFn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contest tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	winner, err := selectForContest(ctx, tx, winnerID)
	if err != nil {
		return err
	}
	loser, err := selectForContest(ctx, tx, loserID)
	if err != nil {
		return err
	}

	newWinner, newLoser := fn(winner, loser)

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallpapers SET rating = ?, wins = wins + 1 WHERE id = ?`,
		newWinner, winnerID); err != nil {
		return fmt.Errorf("update winner: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE wallpapers SET rating = ?, losses = losses + 1 WHERE id = ?`,
		newLoser, loserID); err != nil {
		return fmt.Errorf("update loser: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contest tx: %w", err)
	}
	return nil
}

func selectForContest(ctx context.Context, tx *sql.Tx, id string) (model.Wallpaper, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, title, file_name, fingerprint, rating, wins, losses, created_at
		 FROM wallpapers WHERE id = ?`, id)
	w, err := scanWallpaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Wallpaper{}, ErrNotFound
	}
	if err != nil {
		return model.Wallpaper{}, fmt.Errorf("select contestant: %w", err)
	}
	return w, nil
}

// Rank implements Store.Rank using dense ranking: equal ratings share a
// rank, matching the in-memory store.
func (s *SQLiteStore) Rank(ctx context.Context, id string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	row := s.db.QueryRowContext(ctx,
		`SELECT w.id, w.rating, w.wins, w.losses,
		        (SELECT COUNT(DISTINCT rating) FROM wallpapers WHERE rating > w.rating) + 1
		 FROM wallpapers w WHERE w.id = ?`, id)

	var e Entry
	err := row.Scan(&e.ID, &e.Rating, &e.Wins, &e.Losses, &e.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("select rank: %w", err)
	}
	return e, nil
}

// TopN implements Store.TopN.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rating, wins, losses FROM wallpapers
		 ORDER BY rating DESC, id ASC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("select top-n: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Rating, &e.Wins, &e.Losses); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	assignRanksWithTies(entries)
	return entries, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallpapers`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// CountFingerprinted implements Store.CountFingerprinted.
func (s *SQLiteStore) CountFingerprinted(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wallpapers WHERE fingerprint != ''`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Version implements Store.Version.
func (s *SQLiteStore) Version(ctx context.Context) uint64 {
	return s.version.Load()
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallpaper(row rowScanner) (model.Wallpaper, error) {
	var w model.Wallpaper
	var createdAt string
	if err := row.Scan(&w.ID, &w.Title, &w.FileName, &w.Fingerprint,
		&w.Rating, &w.Wins, &w.Losses, &createdAt); err != nil {
		return model.Wallpaper{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		w.CreatedAt = ts
	}
	return w, nil
}

// isUniqueViolation reports whether err is a primary-key collision.
// modernc.org/sqlite surfaces these as plain errors, so match on the
// SQLite message rather than a typed code.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
