// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"
)

type subscriptionView struct {
	SubscriberID string    `json:"subscriber_id"`
	SubjectID    string    `json:"subject_id"`
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubscriptionsHandler handles subscription listing requests.
type SubscriptionsHandler struct {
	deps Dependencies
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(deps Dependencies) *SubscriptionsHandler {
	return &SubscriptionsHandler{deps: deps}
}

// HandleList handles GET /subscriptions requests.
func (h *SubscriptionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	subs, err := h.deps.Subscriptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subscriptionView{
			SubscriberID: sub.SubscriberID,
			SubjectID:    sub.SubjectID,
			Version:      sub.LastNotifiedVersion,
			CreatedAt:    sub.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
