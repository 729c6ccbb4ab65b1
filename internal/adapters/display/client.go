// Package display implements the client for the external display API that
// renders aggregate stat slots. The reconciler converges labeled resources
// toward freshly computed desired state through this contract.
package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default client configuration constants.
const (
	defaultTimeout = 10 * time.Second
)

// Manager is the external resource contract the reconciler converges
// against.
type Manager interface {
	// EnsureCategory returns the id of the named grouping container,
	// creating it when absent. Lookup is by name: by convention exactly one
	// category exists per name.
	EnsureCategory(ctx context.Context, name string) (string, error)

	// CreateResource creates a labeled resource inside a category and
	// returns its id.
	CreateResource(ctx context.Context, categoryID, label string) (string, error)

	// RelabelResource updates a resource's label in place. Returns
	// ErrNotFound when the resource vanished externally.
	RelabelResource(ctx context.Context, resourceID, label string) error

	// DeleteResource removes a resource. Deleting an absent resource is not
	// an error.
	DeleteResource(ctx context.Context, resourceID string) error
}

// Client implements Manager over the display API's REST surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds a single display API request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a display API client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type categoryDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type resourceDoc struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// EnsureCategory looks the category up by name and creates it when absent.
func (c *Client) EnsureCategory(ctx context.Context, name string) (string, error) {
	var existing []categoryDoc
	lookupURL := c.baseURL + "/categories?name=" + url.QueryEscape(name)
	if err := c.do(ctx, http.MethodGet, lookupURL, nil, &existing); err != nil {
		return "", err
	}
	for _, cat := range existing {
		if cat.Name == name {
			return cat.ID, nil
		}
	}

	var created categoryDoc
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/categories", categoryDoc{Name: name}, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// CreateResource creates a labeled resource inside a category.
func (c *Client) CreateResource(ctx context.Context, categoryID, label string) (string, error) {
	var created resourceDoc
	body := struct {
		CategoryID string `json:"category_id"`
		Label      string `json:"label"`
	}{CategoryID: categoryID, Label: label}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/resources", body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// RelabelResource updates a resource's label in place.
func (c *Client) RelabelResource(ctx context.Context, resourceID, label string) error {
	u := c.baseURL + "/resources/" + url.PathEscape(resourceID)
	return c.do(ctx, http.MethodPatch, u, resourceDoc{Label: label}, nil)
}

// DeleteResource removes a resource. A 404 from the API is treated as
// success.
func (c *Client) DeleteResource(ctx context.Context, resourceID string) error {
	u := c.baseURL + "/resources/" + url.PathEscape(resourceID)
	err := c.do(ctx, http.MethodDelete, u, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode body: %w", ErrRequest, err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrRequest, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, u, ErrNotFound)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s returned %d", ErrRequest, method, u, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %w", ErrRequest, err)
		}
	}
	return nil
}

var _ Manager = (*Client)(nil)
