package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("wallpaper not found")
	ErrExists       = errors.New("wallpaper already exists")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
