// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load(ctx) layers file/env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is where original image blobs are stored.
	DataDir string `koanf:"data_dir"`

	// DBPath points at the SQLite item store. Empty selects the in-memory store.
	DBPath string `koanf:"db_path"`

	// BackfillQueueSize bounds the in-memory fingerprint job queue.
	BackfillQueueSize int `koanf:"backfill_queue_size"`

	// WorkerCount sets the number of fingerprint backfill workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the vote idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DuplicateThreshold is the default Hamming distance (1..64) under which
	// two fingerprints are considered near-duplicates.
	DuplicateThreshold int `koanf:"duplicate_threshold"`

	// BucketPrefixLen and NeighborhoodPrefixLen tune the clustering
	// approximation: hex-prefix widths for buckets and bucket-neighborhoods.
	BucketPrefixLen       int `koanf:"bucket_prefix_len"`
	NeighborhoodPrefixLen int `koanf:"neighborhood_prefix_len"`

	// RatingWindow is the competitive-closeness window for matchmaking.
	RatingWindow int `koanf:"rating_window"`

	// RatingFloorEnabled clamps ratings at RatingFloor when true. Disabled by
	// default: the reference behavior lets ratings go negative.
	RatingFloorEnabled bool `koanf:"rating_floor_enabled"`
	RatingFloor        int  `koanf:"rating_floor"`

	// RecentWindow caps the exclude list accepted by GET /match.
	RecentWindow int `koanf:"recent_window"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxUploadBytes bounds the accepted wallpaper upload size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		DataDir:               "data",
		DBPath:                "",
		BackfillQueueSize:     10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		DedupeSize:            100_000,
		DuplicateThreshold:    10,
		BucketPrefixLen:       4,
		NeighborhoodPrefixLen: 3,
		RatingWindow:          400,
		RatingFloorEnabled:    false,
		RatingFloor:           0,
		RecentWindow:          50,
		MaxLeaderboardLimit:   100,
		MaxUploadBytes:        32 << 20,
	}
	return c
}
