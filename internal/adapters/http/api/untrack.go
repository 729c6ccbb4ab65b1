// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// untrackRequest mirrors the request schema for POST /untrack.
type untrackRequest struct {
	SubscriberID string `json:"subscriber_id"`
}

// UntrackHandler handles untracking requests.
type UntrackHandler struct {
	deps Dependencies
}

// NewUntrackHandler creates a new untrack handler.
func NewUntrackHandler(deps Dependencies) *UntrackHandler {
	return &UntrackHandler{deps: deps}
}

// HandleUntrack handles POST /untrack requests. Untracking an unknown
// subscriber succeeds; the operation is idempotent.
func (h *UntrackHandler) HandleUntrack(w http.ResponseWriter, r *http.Request) {
	const op = "api.untrack"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req untrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SubscriberID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing subscriber_id")))
		return
	}

	if err := h.deps.Untrack(r.Context(), req.SubscriberID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
