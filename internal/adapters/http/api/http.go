// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/statwatch/internal/adapters/notify"
	"github.com/okian/statwatch/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Track starts tracking the named player for the subscriber.
	Track(ctx context.Context, subscriberID, displayName string) (model.Subscription, error)

	// Untrack removes the subscriber's subscription and snapshot.
	Untrack(ctx context.Context, subscriberID string) error

	// Subscriptions lists every active subscription.
	Subscriptions(ctx context.Context) ([]model.Subscription, error)

	// Stats returns the live summary of the subscriber's tracked subject.
	Stats(ctx context.Context, subscriberID string) (notify.Summary, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	trackHandler         *TrackHandler
	untrackHandler       *UntrackHandler
	subscriptionsHandler *SubscriptionsHandler
	statsHandler         *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		trackHandler:         NewTrackHandler(deps),
		untrackHandler:       NewUntrackHandler(deps),
		subscriptionsHandler: NewSubscriptionsHandler(deps),
		statsHandler:         NewStatsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/track", MetricsMiddleware(s.trackHandler.HandleTrack, "track"))
	mux.HandleFunc("/untrack", MetricsMiddleware(s.untrackHandler.HandleUntrack, "untrack"))
	mux.HandleFunc("/subscriptions", MetricsMiddleware(s.subscriptionsHandler.HandleList, "subscriptions"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
