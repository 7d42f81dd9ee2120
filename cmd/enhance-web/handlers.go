package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fpang/satellite-super-resolution/internal/cli"
	"github.com/fpang/satellite-super-resolution/internal/dataurl"
	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/fpang/satellite-super-resolution/internal/workflow"
	"github.com/rs/zerolog/log"
)

// GET /api/state
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// POST /api/image  {"image": "data:image/...;base64,..."}
func (s *server) handleImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)

	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !dataurl.IsImage(req.Image) {
		httpError(w, http.StatusBadRequest, "image must be a base64 data:image/... URI")
		return
	}

	s.ctrl.SelectImage(req.Image)
	respondJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// POST /api/enhance
func (s *server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	err := s.ctrl.Start(r.Context())
	switch {
	case errors.Is(err, workflow.ErrNoImage):
		respondJSON(w, http.StatusBadRequest, s.ctrl.Snapshot())
	case errors.Is(err, workflow.ErrBusy):
		httpError(w, http.StatusConflict, err.Error())
	case err != nil:
		httpError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusAccepted, s.ctrl.Snapshot())
	}
}

type pickResponse struct {
	Canceled bool   `json:"canceled,omitempty"`
	Path     string `json:"path,omitempty"`
	Size     string `json:"size,omitempty"`
	Resized  bool   `json:"resized,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

// POST /api/pick opens a native file dialog and selects the chosen image.
func (s *server) handlePick(w http.ResponseWriter, r *http.Request) {
	path, err := s.pick()
	if err != nil {
		if errors.Is(err, cli.ErrPickCanceled) {
			respondJSON(w, http.StatusOK, pickResponse{Canceled: true})
			return
		}
		log.Error().Err(err).Msg("File dialog failed")
		httpError(w, http.StatusInternalServerError, fmt.Sprintf("file dialog failed: %v", err))
		return
	}

	img, err := filehandler.LoadImage(path, s.maxDimension)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.ctrl.SelectImage(img.DataURL())

	resp := pickResponse{
		Path:    img.Path,
		Size:    cli.FormatBytes(len(img.Data)),
		Resized: img.Resized,
	}
	if img.Metadata != nil {
		resp.Metadata = img.Metadata.FormatMetadataContext()
	}
	respondJSON(w, http.StatusOK, resp)
}
