// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/wallarena/internal/domain/model"
)

// VoteDependencies defines the interface for vote processing dependencies.
type VoteDependencies interface {
	SubmitVote(ctx context.Context, v model.Vote) (applied bool, err error)
}

// VotesHandler handles vote requests.
type VotesHandler struct {
	deps VoteDependencies
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(deps VoteDependencies) *VotesHandler {
	return &VotesHandler{deps: deps}
}

// HandlePostVote handles POST /votes requests.
func (h *VotesHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	applied, err := h.deps.SubmitVote(r.Context(), model.Vote{
		VoteID:    req.VoteID,
		WinnerID:  req.WinnerID,
		LoserID:   req.LoserID,
		ElapsedMS: req.ElapsedMS,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if !applied {
		// Replayed vote id: acknowledged, ratings untouched.
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "applied", Duplicate: false})
}
