// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/wallarena/internal/domain/model"
)

// WallpaperDependencies defines the interface for catalog operations.
type WallpaperDependencies interface {
	CreateWallpaper(ctx context.Context, title, fileName string, data []byte) (model.Wallpaper, error)
	GetWallpaper(ctx context.Context, id string) (model.Wallpaper, error)
	DeleteWallpaper(ctx context.Context, id string) error
}

// WallpapersHandler handles wallpaper catalog requests.
type WallpapersHandler struct {
	deps           WallpaperDependencies
	maxUploadBytes int64
}

// NewWallpapersHandler creates a new wallpapers handler.
func NewWallpapersHandler(deps WallpaperDependencies, maxUploadBytes int64) *WallpapersHandler {
	return &WallpapersHandler{
		deps:           deps,
		maxUploadBytes: maxUploadBytes,
	}
}

// wallpaperResponse mirrors the wire shape of a wallpaper record.
type wallpaperResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Rating      int       `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	CreatedAt   time.Time `json:"created_at"`
}

func toWallpaperResponse(w model.Wallpaper) wallpaperResponse {
	return wallpaperResponse{
		ID:          w.ID,
		Title:       w.Title,
		FileName:    w.FileName,
		Fingerprint: w.Fingerprint,
		Rating:      w.Rating,
		Wins:        w.Wins,
		Losses:      w.Losses,
		CreatedAt:   w.CreatedAt,
	}
}

// HandlePostWallpaper handles POST /wallpapers requests. The upload is a
// multipart form with an "image" file part and an optional "title" field.
func (h *WallpapersHandler) HandlePostWallpaper(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_wallpaper"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing image part")))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	created, err := h.deps.CreateWallpaper(r.Context(), r.FormValue("title"), header.Filename, data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toWallpaperResponse(created))
}

// HandleWallpaperByID handles GET and DELETE /wallpapers/{id} requests.
func (h *WallpapersHandler) HandleWallpaperByID(w http.ResponseWriter, r *http.Request) {
	const op = "api.wallpaper_by_id"

	id := strings.TrimPrefix(r.URL.Path, "/wallpapers/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := h.deps.GetWallpaper(r.Context(), id)
		if err != nil {
			if isNotFound(err) {
				writeError(w, http.StatusNotFound, "not_found", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, toWallpaperResponse(record))
	case http.MethodDelete:
		if err := h.deps.DeleteWallpaper(r.Context(), id); err != nil {
			if isNotFound(err) {
				writeError(w, http.StatusNotFound, "not_found", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
