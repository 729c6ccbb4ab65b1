// Package notify defines the notification record emitted once per detected
// change and the sink contract that delivers it. Rendering a record into a
// chat message is the receiving side's concern; the record carries every
// field a renderer needs.
package notify

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/statwatch/internal/domain/diff"
	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/internal/domain/stats"
)

// Kind distinguishes the two record shapes.
type Kind string

// Record kinds.
const (
	// KindBaseline marks the first snapshot for a newly tracked subject; no
	// delta is shown.
	KindBaseline Kind = "baseline"

	// KindUpdate carries a delta plus the full current summary.
	KindUpdate Kind = "update"
)

// Sink delivers notification records to subscribers. Delivery failures are
// logged and never retried within the same tick.
type Sink interface {
	Notify(ctx context.Context, subscriberID string, rec Record) error
}

// SkillStanding is one entry of the overall top-skills list.
type SkillStanding struct {
	ID    string `json:"id"`
	Level int64  `json:"level"`
}

// Summary holds the display-ready view of a full snapshot.
type Summary struct {
	Nickname         string          `json:"nickname"`
	Side             string          `json:"side"`
	Level            int             `json:"level"`
	Experience       int64           `json:"experience"`
	PlaytimeHours    float64         `json:"playtime_hours"`
	Raids            int64           `json:"raids"`
	Survived         int64           `json:"survived"`
	Kills            int64           `json:"kills"`
	Deaths           int64           `json:"deaths"`
	KDRatio          float64         `json:"kd_ratio"`
	SurvivalPercent  float64         `json:"survival_percent"`
	Achievements     int             `json:"achievements"`
	LongestWinStreak int64           `json:"longest_win_streak"`
	TopSkills        []SkillStanding `json:"top_skills"`
}

// Record is the unit handed to a Sink: either a baseline marker or an update
// with a delta.
type Record struct {
	ID           string  `json:"id"`
	Kind         Kind    `json:"kind"`
	SubscriberID string  `json:"subscriber_id"`
	SubjectID    string  `json:"subject_id"`
	Summary      Summary `json:"summary"`

	// Delta is nil for baseline records.
	Delta *model.Delta `json:"delta,omitempty"`

	// TopSkillChanges is the delta's skill list sorted by descending diff
	// and capped for display.
	TopSkillChanges []model.ProgressDelta `json:"top_skill_changes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

const (
	secondsPerHour = 3600
	topSkillCount  = 5
)

// NewBaselineRecord builds the one-time record sent when tracking starts.
func NewBaselineRecord(subscriberID string, snap model.ProfileSnapshot) Record {
	return Record{
		ID:           uuid.NewString(),
		Kind:         KindBaseline,
		SubscriberID: subscriberID,
		SubjectID:    snap.SubjectID,
		Summary:      Summarize(snap),
		CreatedAt:    time.Now().UTC(),
	}
}

// NewUpdateRecord builds the record for a detected change. topK caps the
// displayed skill changes; the full delta rides along untouched.
func NewUpdateRecord(subscriberID string, snap model.ProfileSnapshot, d model.Delta, topK int) Record {
	return Record{
		ID:              uuid.NewString(),
		Kind:            KindUpdate,
		SubscriberID:    subscriberID,
		SubjectID:       snap.SubjectID,
		Summary:         Summarize(snap),
		Delta:           &d,
		TopSkillChanges: diff.TopByDiff(d.Skills, topK),
		CreatedAt:       time.Now().UTC(),
	}
}

// Summarize renders the display-ready view of a full snapshot.
func Summarize(snap model.ProfileSnapshot) Summary {
	s := Summary{
		Nickname:         snap.Nickname,
		Side:             snap.Side,
		Level:            stats.LevelFromExperience(snap.Experience),
		Experience:       snap.Experience,
		PlaytimeHours:    float64(snap.PlaytimeSeconds) / secondsPerHour,
		Raids:            snap.Counters[model.CounterRaids],
		Survived:         snap.Counters[model.CounterSurvived],
		Kills:            snap.Counters[model.CounterKills],
		Deaths:           snap.Counters[model.CounterDeaths],
		KDRatio:          stats.KDRatio(snap),
		SurvivalPercent:  stats.SurvivalPercent(snap),
		Achievements:     snap.Achievements,
		LongestWinStreak: snap.Counters[model.CounterLongestWins],
	}

	standings := make([]SkillStanding, 0, len(snap.SkillOrder))
	for _, id := range snap.SkillOrder {
		standings = append(standings, SkillStanding{ID: id, Level: stats.SkillLevel(snap.Skills[id])})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return snap.Skills[standings[i].ID] > snap.Skills[standings[j].ID]
	})
	if len(standings) > topSkillCount {
		standings = standings[:topSkillCount]
	}
	s.TopSkills = standings

	return s
}
