// Package provider implements the HTTP client for the external profile
// provider. It exposes three calls: a full profile fetch, a display-name to
// subject-id resolution over the provider's index, and a bulk version index
// used to skip subjects whose data has not advanced.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout = 10 * time.Second
)

// Client fetches player profiles from the provider's JSON endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a provider client for the given base URL.
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

// rawProfile mirrors the provider's profile document. Only the fields the
// tracker consumes are decoded.
type rawProfile struct {
	Updated json.Number `json:"updated"`
	Info    struct {
		Nickname   string `json:"nickname"`
		Side       string `json:"side"`
		Experience int64  `json:"experience"`
	} `json:"info"`
	PmcStats struct {
		Eft struct {
			TotalInGameTime int64 `json:"totalInGameTime"`
			OverAllCounters struct {
				Items []struct {
					Key   []string `json:"Key"`
					Value int64    `json:"Value"`
				} `json:"Items"`
			} `json:"overAllCounters"`
		} `json:"eft"`
	} `json:"pmcStats"`
	Skills struct {
		Common []struct {
			ID       string `json:"Id"`
			Progress int64  `json:"Progress"`
		} `json:"Common"`
		Mastering []struct {
			ID       string `json:"Id"`
			Progress int64  `json:"Progress"`
		} `json:"Mastering"`
	} `json:"skills"`
	Achievements map[string]json.RawMessage `json:"achievements"`
}

// FetchProfile fetches and decodes the current profile snapshot for a
// subject. The snapshot's Version is the profile's own update marker when the
// document carries one; callers holding a fresher bulk-index version may
// overwrite it.
func (c *Client) FetchProfile(ctx context.Context, subjectID string) (model.ProfileSnapshot, error) {
	start := time.Now()
	metrics.RecordProviderFetch()

	var raw rawProfile
	err := c.getJSON(ctx, fmt.Sprintf("%s/pve/%s.json", c.baseURL, subjectID), &raw)
	metrics.RecordProviderFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderFetchError()
		return model.ProfileSnapshot{}, err
	}

	snap := model.ProfileSnapshot{
		SubjectID:       subjectID,
		Version:         raw.Updated.String(),
		Nickname:        raw.Info.Nickname,
		Side:            raw.Info.Side,
		Experience:      raw.Info.Experience,
		PlaytimeSeconds: raw.PmcStats.Eft.TotalInGameTime,
		Achievements:    len(raw.Achievements),
		Counters:        make(map[string]int64, len(raw.PmcStats.Eft.OverAllCounters.Items)),
		Skills:          make(map[string]int64, len(raw.Skills.Common)),
		Masteries:       make(map[string]int64, len(raw.Skills.Mastering)),
		FetchedAt:       time.Now().UTC(),
	}

	for _, item := range raw.PmcStats.Eft.OverAllCounters.Items {
		snap.Counters[strings.Join(item.Key, model.CounterKeySep)] = item.Value
	}
	for _, skill := range raw.Skills.Common {
		snap.Skills[skill.ID] = skill.Progress
		snap.SkillOrder = append(snap.SkillOrder, skill.ID)
	}
	for _, mastery := range raw.Skills.Mastering {
		snap.Masteries[mastery.ID] = mastery.Progress
		snap.MasteryOrder = append(snap.MasteryOrder, mastery.ID)
	}

	return snap, nil
}

// ResolveSubjectID resolves a display name to a subject id via the
// provider's name index. Matching is case-insensitive, as the provider's own
// search behaves. Returns ErrNotFound when no entry matches.
func (c *Client) ResolveSubjectID(ctx context.Context, displayName string) (string, error) {
	var index map[string]string
	if err := c.getJSON(ctx, c.baseURL+"/profile/index.json", &index); err != nil {
		return "", err
	}

	for subjectID, name := range index {
		if strings.EqualFold(name, displayName) {
			return subjectID, nil
		}
	}
	return "", fmt.Errorf("display name %q: %w", displayName, ErrNotFound)
}

// KnownVersions returns the provider's bulk subject→version index. Subjects
// absent from the map have no known update marker and should be skipped.
func (c *Client) KnownVersions(ctx context.Context) (map[string]string, error) {
	var raw map[string]json.Number
	if err := c.getJSON(ctx, c.baseURL+"/profile/updated.json", &raw); err != nil {
		return nil, err
	}

	versions := make(map[string]string, len(raw))
	for subjectID, v := range raw {
		versions[subjectID] = v.String()
	}
	return versions, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrFetch, url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrFetch, url, err)
	}
	return nil
}
