// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/wallarena/internal/domain/types"
)

// DuplicateDependencies defines the interface for duplicate detection.
type DuplicateDependencies interface {
	Duplicates(ctx context.Context, threshold int) ([]types.DuplicateGroup, error)
}

// DuplicatesHandler handles duplicate report requests.
type DuplicatesHandler struct {
	deps DuplicateDependencies
}

// NewDuplicatesHandler creates a new duplicates handler.
func NewDuplicatesHandler(deps DuplicateDependencies) *DuplicatesHandler {
	return &DuplicatesHandler{deps: deps}
}

// duplicatesResponse wraps the groups so an empty report is an object,
// not a bare null.
type duplicatesResponse struct {
	Groups []types.DuplicateGroup `json:"groups"`
}

// HandleGetDuplicates handles GET /duplicates?threshold=N requests.
// The threshold parameter is optional; when absent the configured
// default applies.
func (h *DuplicatesHandler) HandleGetDuplicates(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_duplicates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	threshold := 0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		threshold = n
	}

	groups, err := h.deps.Duplicates(r.Context(), threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if groups == nil {
		groups = []types.DuplicateGroup{}
	}
	writeJSON(w, http.StatusOK, duplicatesResponse{Groups: groups})
}
