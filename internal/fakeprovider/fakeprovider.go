// Package fakeprovider serves a small synthetic player-profile API for local
// development. It speaks the same three endpoints the real provider does:
// /profile/index.json, /profile/updated.json, and /pve/{id}.json, and bumps
// player progress on an interval so the tracking pipeline has changes to
// detect.
package fakeprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config controls the synthetic dataset.
type Config struct {
	// Players is the number of synthetic profiles to generate.
	Players int

	// MutateEvery bumps a random player's progress on this interval. Zero
	// disables mutation.
	MutateEvery time.Duration

	// Seed makes the dataset reproducible.
	Seed int64
}

type player struct {
	nickname   string
	side       string
	experience int64
	playtime   int64
	updated    int64
	kills      int64
	deaths     int64
	raids      int64
	survived   int64
	skills     []skillEntry
}

type skillEntry struct {
	ID       string `json:"Id"`
	Progress int64  `json:"Progress"`
}

// Server holds the mutable synthetic dataset.
type Server struct {
	players map[string]*player
	order   []string
	rng     *rand.Rand
	mu      sync.Mutex
}

var sides = []string{"Usec", "Bear"}

var skillNames = []string{"Endurance", "Strength", "Vitality", "Metabolism", "Sniper", "Pistol"}

// New builds a server with a deterministic synthetic dataset.
func New(cfg Config) *Server {
	if cfg.Players < 1 {
		cfg.Players = 5
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	s := &Server{
		players: make(map[string]*player, cfg.Players),
		rng:     rng,
	}
	base := time.Now().Add(-24 * time.Hour).Unix()
	for i := 0; i < cfg.Players; i++ {
		id := fmt.Sprintf("6%015d", i+1)
		p := &player{
			nickname:   "Player" + strconv.Itoa(i+1),
			side:       sides[i%len(sides)],
			experience: rng.Int63n(500_000),
			playtime:   rng.Int63n(2_000_000),
			updated:    base + int64(i),
			kills:      rng.Int63n(2000),
			deaths:     rng.Int63n(800) + 1,
			raids:      rng.Int63n(1500) + 1,
		}
		p.survived = rng.Int63n(p.raids + 1)
		for _, name := range skillNames {
			p.skills = append(p.skills, skillEntry{ID: name, Progress: rng.Int63n(5000)})
		}
		s.players[id] = p
		s.order = append(s.order, id)
	}
	return s
}

// Mutate bumps a random player's experience, counters, and update marker.
func (s *Server) Mutate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.order[s.rng.Intn(len(s.order))]
	p := s.players[id]
	p.experience += s.rng.Int63n(20_000) + 1
	p.kills += s.rng.Int63n(10)
	p.deaths += s.rng.Int63n(3)
	p.raids += s.rng.Int63n(5) + 1
	p.survived += s.rng.Int63n(3)
	idx := s.rng.Intn(len(p.skills))
	p.skills[idx].Progress += s.rng.Int63n(500) + 100
	p.updated = time.Now().Unix()
}

// Run starts the mutation loop until ctx is canceled.
func (s *Server) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Mutate()
		}
	}
}

// Handler returns the HTTP handler serving the three provider endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/profile/index.json", s.handleIndex)
	mux.HandleFunc("/profile/updated.json", s.handleUpdated)
	mux.HandleFunc("/pve/", s.handleProfile)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	index := make(map[string]string, len(s.players))
	for id, p := range s.players {
		index[id] = p.nickname
	}
	s.mu.Unlock()
	writeJSON(w, index)
}

func (s *Server) handleUpdated(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	updated := make(map[string]int64, len(s.players))
	for id, p := range s.players {
		updated[id] = p.updated
	}
	s.mu.Unlock()
	writeJSON(w, updated)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pve/"), ".json")

	s.mu.Lock()
	p, ok := s.players[id]
	if !ok {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	doc := p.document()
	s.mu.Unlock()

	writeJSON(w, doc)
}

// document renders the player in the provider's wire shape.
func (p *player) document() map[string]any {
	counters := []map[string]any{
		{"Key": []string{"Kills"}, "Value": p.kills},
		{"Key": []string{"Deaths"}, "Value": p.deaths},
		{"Key": []string{"Sessions", "Pmc"}, "Value": p.raids},
		{"Key": []string{"ExitStatus", "Survived", "Pmc"}, "Value": p.survived},
		{"Key": []string{"LongestWinStreak", "Pmc"}, "Value": p.survived / 3},
	}
	skills := make([]skillEntry, len(p.skills))
	copy(skills, p.skills)

	return map[string]any{
		"updated": p.updated,
		"info": map[string]any{
			"nickname":   p.nickname,
			"side":       p.side,
			"experience": p.experience,
		},
		"pmcStats": map[string]any{
			"eft": map[string]any{
				"totalInGameTime": p.playtime,
				"overAllCounters": map[string]any{"Items": counters},
			},
		},
		"skills": map[string]any{
			"Common":    skills,
			"Mastering": []skillEntry{},
		},
		"achievements": map[string]any{},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
