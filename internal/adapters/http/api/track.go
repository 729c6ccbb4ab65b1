// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/statwatch/internal/adapters/repository"
	service "github.com/okian/statwatch/internal/app"
)

// trackRequest mirrors the request schema for POST /track.
type trackRequest struct {
	SubscriberID string `json:"subscriber_id"`
	Nickname     string `json:"nickname"`
}

func (t trackRequest) validate() error {
	switch {
	case strings.TrimSpace(t.SubscriberID) == "":
		return errors.New("missing subscriber_id")
	case strings.TrimSpace(t.Nickname) == "":
		return errors.New("missing nickname")
	}
	return nil
}

type trackResponse struct {
	SubscriberID string `json:"subscriber_id"`
	SubjectID    string `json:"subject_id"`
	Version      string `json:"version"`
}

// TrackHandler handles tracking requests.
type TrackHandler struct {
	deps Dependencies
}

// NewTrackHandler creates a new track handler.
func NewTrackHandler(deps Dependencies) *TrackHandler {
	return &TrackHandler{deps: deps}
}

// HandleTrack handles POST /track requests.
func (h *TrackHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	const op = "api.track"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.Track(r.Context(), req.SubscriberID, req.Nickname)
	switch {
	case errors.Is(err, service.ErrUnknownSubject), errors.Is(err, service.ErrNoVersionMarker):
		writeError(w, http.StatusNotFound, "unknown_subject", err)
		return
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "already_tracking", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	writeJSON(w, http.StatusCreated, trackResponse{
		SubscriberID: sub.SubscriberID,
		SubjectID:    sub.SubjectID,
		Version:      sub.LastNotifiedVersion,
	})
}
