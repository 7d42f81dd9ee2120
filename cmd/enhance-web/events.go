package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fpang/satellite-super-resolution/internal/workflow"
	"github.com/rs/zerolog/log"
)

// stateEvent is the image-free view of workflow.State pushed on every change.
// Clients fetch GET /api/state when HasInput, HasOutput or Generation tell
// them an image changed.
type stateEvent struct {
	HasInput   bool      `json:"hasInput"`
	HasOutput  bool      `json:"hasOutput"`
	Busy       bool      `json:"busy"`
	Error      string    `json:"error,omitempty"`
	Generation uint64    `json:"generation"`
	AttemptID  string    `json:"attemptId,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newStateEvent(st workflow.State) stateEvent {
	return stateEvent{
		HasInput:   st.HasInput(),
		HasOutput:  st.OutputImage != "",
		Busy:       st.Busy,
		Error:      st.Error,
		Generation: st.Generation,
		AttemptID:  st.AttemptID,
		UpdatedAt:  st.UpdatedAt,
	}
}

// GET /api/events streams one Server-Sent "state" event per change.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream opened")
	defer log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream closed")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(newStateEvent(st))
			if err != nil {
				log.Error().Err(err).Msg("Failed to encode state event")
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
