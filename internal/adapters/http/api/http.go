// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/wallarena/internal/adapters/repository"
	"github.com/okian/wallarena/internal/domain/match"
	"github.com/okian/wallarena/internal/domain/model"
	"github.com/okian/wallarena/internal/domain/types"
)

// Default handler limits; override with server options.
const (
	defaultMaxLeaderboardLimit = 100
	defaultMaxUploadBytes      = 32 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Catalog operations.
	CreateWallpaper(ctx context.Context, title, fileName string, data []byte) (model.Wallpaper, error)
	GetWallpaper(ctx context.Context, id string) (model.Wallpaper, error)
	DeleteWallpaper(ctx context.Context, id string) error

	// SubmitVote applies a contest outcome; applied is false for replays.
	SubmitVote(ctx context.Context, v model.Vote) (applied bool, err error)

	// NextMatch serves a comparison pair.
	NextMatch(ctx context.Context, exclude map[string]struct{}) (types.MatchPair, error)

	// Duplicates lists near-duplicate groups; threshold < 1 means default.
	Duplicates(ctx context.Context, threshold int) ([]types.DuplicateGroup, error)

	// Backfill fingerprints every record missing one.
	Backfill(ctx context.Context) (types.BackfillReport, error)

	// Read operations expose leaderboard data.
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, id string) (Entry, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxLeaderboardLimit caps the leaderboard limit query parameter.
func WithMaxLeaderboardLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.maxLeaderboardLimit = limit
		}
	}
}

// WithMaxUploadBytes caps the accepted wallpaper upload size.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxLeaderboardLimit int
	maxUploadBytes      int64

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	wallpapersHandler  *WallpapersHandler
	votesHandler       *VotesHandler
	matchHandler       *MatchHandler
	duplicatesHandler  *DuplicatesHandler
	backfillHandler    *BackfillHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		maxUploadBytes:      defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.wallpapersHandler = NewWallpapersHandler(deps, s.maxUploadBytes)
	s.votesHandler = NewVotesHandler(deps)
	s.matchHandler = NewMatchHandler(deps)
	s.duplicatesHandler = NewDuplicatesHandler(deps)
	s.backfillHandler = NewBackfillHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLeaderboardLimit)
	s.rankHandler = NewRankHandler(deps)

	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/wallpapers", MetricsMiddleware(s.wallpapersHandler.HandlePostWallpaper, "wallpapers"))
	mux.HandleFunc("/wallpapers/", MetricsMiddleware(s.wallpapersHandler.HandleWallpaperByID, "wallpapers"))
	mux.HandleFunc("/votes", MetricsMiddleware(s.votesHandler.HandlePostVote, "votes"))
	mux.HandleFunc("/match", MetricsMiddleware(s.matchHandler.HandleGetMatch, "match"))
	mux.HandleFunc("/duplicates", MetricsMiddleware(s.duplicatesHandler.HandleGetDuplicates, "duplicates"))
	mux.HandleFunc("/backfill", MetricsMiddleware(s.backfillHandler.HandlePostBackfill, "backfill"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// voteRequest mirrors the wire schema for POST /votes.
type voteRequest struct {
	VoteID    string `json:"vote_id"`
	WinnerID  string `json:"winner_id"`
	LoserID   string `json:"loser_id"`
	ElapsedMS *int64 `json:"elapsed_ms,omitempty"`
}

func (v voteRequest) validate() error {
	switch {
	case strings.TrimSpace(v.VoteID) == "":
		return errors.New("missing vote_id")
	case strings.TrimSpace(v.WinnerID) == "":
		return errors.New("missing winner_id")
	case strings.TrimSpace(v.LoserID) == "":
		return errors.New("missing loser_id")
	case v.WinnerID == v.LoserID:
		return errors.New("winner_id and loser_id must differ")
	}
	if v.ElapsedMS != nil && *v.ElapsedMS < 0 {
		return errors.New("elapsed_ms must not be negative")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// isInsufficientPopulation detects a pool too small for matchmaking.
func isInsufficientPopulation(err error) bool {
	return errors.Is(err, match.ErrInsufficientPopulation)
}
