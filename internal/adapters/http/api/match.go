// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/wallarena/internal/domain/types"
)

// MatchDependencies defines the interface for matchmaking operations.
type MatchDependencies interface {
	NextMatch(ctx context.Context, exclude map[string]struct{}) (types.MatchPair, error)
}

// MatchHandler handles match requests.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

// HandleGetMatch handles GET /match?exclude=a,b requests.
func (h *MatchHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	var exclude map[string]struct{}
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		exclude = make(map[string]struct{})
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				exclude[id] = struct{}{}
			}
		}
	}

	pair, err := h.deps.NextMatch(r.Context(), exclude)
	if err != nil {
		if isInsufficientPopulation(err) {
			writeError(w, http.StatusConflict, "insufficient_population", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}
