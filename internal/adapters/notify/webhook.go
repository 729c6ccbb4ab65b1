package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Default webhook configuration constants.
const (
	defaultWebhookTimeout = 10 * time.Second
)

// WebhookSink delivers records as JSON POSTs to a configured endpoint.
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

// WebhookOption applies a configuration option to the WebhookSink.
type WebhookOption func(*WebhookSink)

// WithWebhookTimeout bounds a single delivery.
func WithWebhookTimeout(timeout time.Duration) WebhookOption {
	return func(s *WebhookSink) {
		if timeout > 0 {
			s.httpClient.Timeout = timeout
		}
	}
}

// WithWebhookHTTPClient replaces the underlying HTTP client.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewWebhookSink creates a sink posting to the given URL.
func NewWebhookSink(url string, opts ...WebhookOption) *WebhookSink {
	s := &WebhookSink{
		url:        url,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Notify posts the record. Any non-2xx response counts as a delivery
// failure.
func (s *WebhookSink) Notify(ctx context.Context, subscriberID string, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %w", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: webhook returned %d for subscriber %s", ErrDelivery, resp.StatusCode, subscriberID)
	}
	return nil
}

var _ Sink = (*WebhookSink)(nil)
