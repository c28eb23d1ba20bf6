// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wallarena/internal/adapters/blob"
	jobqueue "github.com/okian/wallarena/internal/adapters/mq/queue"
	workerpool "github.com/okian/wallarena/internal/adapters/mq/worker"
	"github.com/okian/wallarena/internal/adapters/pixels"
	repository "github.com/okian/wallarena/internal/adapters/repository"
	"github.com/okian/wallarena/internal/domain/cluster"
	"github.com/okian/wallarena/internal/domain/dedupe"
	"github.com/okian/wallarena/internal/domain/fingerprint"
	"github.com/okian/wallarena/internal/domain/match"
	"github.com/okian/wallarena/internal/domain/model"
	"github.com/okian/wallarena/internal/domain/rating"
	"github.com/okian/wallarena/internal/domain/types"
	"github.com/okian/wallarena/pkg/logger"
	"github.com/okian/wallarena/pkg/metrics"
)

// Sentinel kinds for service errors.
var (
	ErrSelfContest = errors.New("winner and loser must differ")
	ErrNotStarted  = errors.New("service not started")
)

// dupCache memoizes the last duplicate-group computation. It stays
// valid as long as the store's fingerprint population and the requested
// threshold are unchanged.
type dupCache struct {
	valid     bool
	version   uint64
	threshold int
	groups    []types.DuplicateGroup
}

// Service implements the API dependencies for the wallpaper arena.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	blobs      blob.Store
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool
	decoder    *pixels.Decoder
	rater      *rating.Engine
	matcher    *match.Matchmaker
	finder     *cluster.Finder

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	dataDir            string
	dbPath             string
	duplicateThreshold int
	bucketPrefixLen    int
	neighborhoodPrefix int
	ratingWindow       int
	ratingFloorEnabled bool
	ratingFloor        int

	// Duplicate cache
	dupMu sync.Mutex
	dup   dupCache

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of backfill worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the fingerprint job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the vote deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDataDir sets the directory for wallpaper image blobs.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithDBPath selects the SQLite store at path. An empty path keeps the
// in-memory store.
func WithDBPath(path string) Option {
	return func(s *Service) {
		s.dbPath = path
	}
}

// WithDuplicateThreshold sets the default Hamming-distance threshold for
// duplicate detection.
func WithDuplicateThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.duplicateThreshold = threshold
		}
	}
}

// WithClusterPrefixes sets the bucket and neighborhood hex-prefix widths
// for the duplicate finder.
func WithClusterPrefixes(bucket, neighborhood int) Option {
	return func(s *Service) {
		if bucket > 0 {
			s.bucketPrefixLen = bucket
		}
		if neighborhood > 0 {
			s.neighborhoodPrefix = neighborhood
		}
	}
}

// WithRatingWindow sets the matchmaker's competitive-closeness window.
func WithRatingWindow(window int) Option {
	return func(s *Service) {
		if window > 0 {
			s.ratingWindow = window
		}
	}
}

// WithRatingFloor enables the rating floor at the given value.
func WithRatingFloor(floor int) Option {
	return func(s *Service) {
		s.ratingFloorEnabled = true
		s.ratingFloor = floor
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        runtime.NumCPU() * 2,
		queueSize:          10000,
		dedupeSize:         100000,
		dataDir:            "data",
		duplicateThreshold: 10,
		bucketPrefixLen:    4,
		neighborhoodPrefix: 3,
		ratingWindow:       400,
		stopCh:             make(chan struct{}),
		logger:             nil, // will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting wallpaper arena service...")

	// Initialize store
	if s.dbPath != "" {
		store, err := repository.NewSQLiteStore(ctx, s.dbPath)
		if err != nil {
			return err
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	} else {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	blobs, err := blob.NewFileStore(filepath.Join(s.dataDir, "blobs"))
	if err != nil {
		return err
	}
	s.blobs = blobs

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.decoder = pixels.New()

	ratingOpts := []rating.Option{}
	if s.ratingFloorEnabled {
		ratingOpts = append(ratingOpts, rating.WithFloor(s.ratingFloor))
	}
	s.rater = rating.New(ratingOpts...)
	s.matcher = match.New(match.WithRatingWindow(s.ratingWindow))
	s.finder = cluster.New(
		cluster.WithBucketPrefix(s.bucketPrefixLen),
		cluster.WithNeighborhoodPrefix(s.neighborhoodPrefix),
	)

	// Create and start the backfill worker pool
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.blobs, s.decoder, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "wallpaper arena service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("duplicateThreshold", s.duplicateThreshold),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping wallpaper arena service...")

	// Close queue first so workers drain and exit
	if q, ok := s.jobQueue.(*jobqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	// Signal cleanup loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "wallpaper arena service stopped")
}

// CreateWallpaper ingests image bytes, persists the record and blob, and
// queues fingerprint computation.
func (s *Service) CreateWallpaper(ctx context.Context, title, fileName string, data []byte) (model.Wallpaper, error) {
	w := model.Wallpaper{
		ID:        uuid.NewString(),
		Title:     title,
		FileName:  fileName,
		Rating:    model.DefaultRating,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.blobs.Save(ctx, w.ID, data); err != nil {
		return model.Wallpaper{}, err
	}
	if err := s.store.Create(ctx, w); err != nil {
		_ = s.blobs.Remove(ctx, w.ID)
		return model.Wallpaper{}, err
	}

	if !s.jobQueue.Enqueue(ctx, model.FingerprintJob{ItemID: w.ID}) {
		// Not fatal: a later backfill pass picks the item up.
		s.logger.Warn(ctx, "fingerprint job not enqueued",
			logger.String("id", w.ID),
		)
	}

	return w, nil
}

// GetWallpaper returns the record for id.
func (s *Service) GetWallpaper(ctx context.Context, id string) (model.Wallpaper, error) {
	return s.store.Get(ctx, id)
}

// DeleteWallpaper removes the record and its image blob.
func (s *Service) DeleteWallpaper(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, id); err != nil {
		s.logger.Warn(ctx, "blob removal failed",
			logger.String("id", id),
			logger.Error(err),
		)
	}
	return nil
}

// SubmitVote applies a contest outcome to both contenders' ratings.
// Replays of an already-seen vote id are acknowledged without touching
// ratings; applied reports whether this call changed anything.
func (s *Service) SubmitVote(ctx context.Context, v model.Vote) (applied bool, err error) {
	if v.WinnerID == v.LoserID {
		metrics.RecordVoteRejected()
		return false, ErrSelfContest
	}

	if v.VoteID != "" && s.deduper.SeenAndRecord(ctx, v.VoteID) {
		metrics.RecordVoteDuplicate()
		s.logger.Debug(ctx, "duplicate vote skipped",
			logger.String("voteID", v.VoteID),
		)
		return false, nil
	}

	err = s.store.ApplyContest(ctx, v.WinnerID, v.LoserID,
		func(winner, loser model.Wallpaper) (int, int) {
			return s.rater.Update(
				rating.Standing{Rating: winner.Rating, Wins: winner.Wins, Losses: winner.Losses},
				rating.Standing{Rating: loser.Rating, Wins: loser.Wins, Losses: loser.Losses},
				v.ElapsedMS,
			)
		})
	if err != nil {
		// Let the caller retry with the same vote id.
		if v.VoteID != "" {
			s.deduper.Unrecord(ctx, v.VoteID)
		}
		metrics.RecordVoteRejected()
		return false, err
	}

	metrics.RecordVoteProcessed()
	metrics.RecordRatingUpdate()
	return true, nil
}

// NextMatch picks a pair of contenders for the voter, excluding the
// given ids when possible.
func (s *Service) NextMatch(ctx context.Context, exclude map[string]struct{}) (types.MatchPair, error) {
	rows, err := s.store.Eligible(ctx)
	if err != nil {
		return types.MatchPair{}, err
	}

	pool := make([]match.Candidate, len(rows))
	titles := make(map[string]string, len(rows))
	for i, row := range rows {
		pool[i] = match.Candidate{ID: row.ID, Rating: row.Rating}
		titles[row.ID] = row.Title
	}

	a, b, err := s.matcher.NextPair(pool, exclude)
	if err != nil {
		return types.MatchPair{}, err
	}

	metrics.RecordMatchServed()
	if !s.matcher.InWindow(a, b) {
		metrics.RecordMatchFallback()
	}

	return types.MatchPair{
		A: types.Contender{ID: a.ID, Title: titles[a.ID], Rating: a.Rating},
		B: types.Contender{ID: b.ID, Title: titles[b.ID], Rating: b.Rating},
	}, nil
}

// Duplicates returns near-duplicate groups at the given Hamming
// threshold. A threshold below 1 selects the configured default. The
// result is cached until the fingerprint population changes.
func (s *Service) Duplicates(ctx context.Context, threshold int) ([]types.DuplicateGroup, error) {
	if threshold < 1 {
		threshold = s.duplicateThreshold
	}

	version := s.store.Version(ctx)

	s.dupMu.Lock()
	defer s.dupMu.Unlock()

	if s.dup.valid && s.dup.version == version && s.dup.threshold == threshold {
		metrics.RecordClusterCacheHit()
		return s.dup.groups, nil
	}

	rows, err := s.store.Fingerprinted(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]cluster.Item, len(rows))
	for i, row := range rows {
		items[i] = cluster.Item{ID: row.ID, Fingerprint: row.Fingerprint}
	}

	start := time.Now()
	found := s.finder.Find(items, threshold)
	metrics.RecordClusterRun()
	metrics.RecordClusterDuration(float64(time.Since(start).Milliseconds()))

	groups := make([]types.DuplicateGroup, len(found))
	for i, g := range found {
		members := make([]types.DuplicateMember, len(g.Members))
		for j, m := range g.Members {
			members[j] = types.DuplicateMember{
				ID:                m.ID,
				Distance:          m.Distance,
				SimilarityPercent: m.SimilarityPercent,
			}
		}
		groups[i] = types.DuplicateGroup{Members: members}
	}
	metrics.UpdateDuplicateGroups(len(groups))

	s.dup = dupCache{
		valid:     true,
		version:   version,
		threshold: threshold,
		groups:    groups,
	}
	return groups, nil
}

// Backfill fingerprints every record that is missing one, synchronously,
// and reports what happened. Undecodable images count as failed and are
// left unfingerprinted.
func (s *Service) Backfill(ctx context.Context) (types.BackfillReport, error) {
	ids, err := s.store.MissingFingerprints(ctx)
	if err != nil {
		return types.BackfillReport{}, err
	}

	var report types.BackfillReport
	for _, id := range ids {
		report.Processed++

		data, err := s.blobs.Load(ctx, id)
		if err != nil {
			report.Failed++
			s.logger.Warn(ctx, "backfill blob load failed",
				logger.String("id", id),
				logger.Error(err),
			)
			continue
		}

		grid, err := s.decoder.Grid(data)
		if err != nil {
			report.Failed++
			metrics.RecordFingerprintFailure()
			s.logger.Warn(ctx, "backfill decode failed",
				logger.String("id", id),
				logger.Error(err),
			)
			continue
		}

		ok, err := s.store.SetFingerprint(ctx, id, fingerprint.FromGray(grid))
		if err != nil {
			report.Failed++
			continue
		}
		if ok {
			report.Updated++
			metrics.RecordFingerprintComputed()
		}
	}

	metrics.UpdateFingerprintedWallpapers(s.store.CountFingerprinted(ctx))
	s.logger.Info(ctx, "backfill pass finished",
		logger.Int("processed", report.Processed),
		logger.Int("updated", report.Updated),
		logger.Int("failed", report.Failed),
	)
	return report, nil
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	// Convert to API format
	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.Entry{
			Rank:   entry.Rank,
			ID:     entry.ID,
			Rating: entry.Rating,
			Wins:   entry.Wins,
			Losses: entry.Losses,
		}
	}

	return apiEntries, nil
}

// Rank returns the rank and rating for a given wallpaper id.
func (s *Service) Rank(ctx context.Context, id string) (types.Entry, error) {
	entry, err := s.store.Rank(ctx, id)
	if err != nil {
		return types.Entry{}, err
	}

	return types.Entry{
		Rank:   entry.Rank,
		ID:     entry.ID,
		Rating: entry.Rating,
		Wins:   entry.Wins,
		Losses: entry.Losses,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		total := s.store.Count(ctx)
		fingerprinted := s.store.CountFingerprinted(ctx)

		stats["queueLength"] = queueLen
		stats["totalWallpapers"] = total
		stats["fingerprintedWallpapers"] = fingerprinted
		stats["seenVotes"] = s.deduper.Size()

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalWallpapers(total)
		metrics.UpdateFingerprintedWallpapers(fingerprinted)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
