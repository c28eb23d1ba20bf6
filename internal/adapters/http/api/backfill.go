// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/wallarena/internal/domain/types"
)

// BackfillDependencies defines the interface for fingerprint backfill.
type BackfillDependencies interface {
	Backfill(ctx context.Context) (types.BackfillReport, error)
}

// BackfillHandler handles backfill trigger requests.
type BackfillHandler struct {
	deps BackfillDependencies
}

// NewBackfillHandler creates a new backfill handler.
func NewBackfillHandler(deps BackfillDependencies) *BackfillHandler {
	return &BackfillHandler{deps: deps}
}

// HandlePostBackfill handles POST /backfill requests.
func (h *BackfillHandler) HandlePostBackfill(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_backfill"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	report, err := h.deps.Backfill(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
