// Package model contains domain models passed between layers.
package model

import "time"

// ProfileSnapshot is the full point-in-time statistical record fetched from
// the external provider for one subject. Snapshots are immutable once built;
// a new fetch produces a new value.
type ProfileSnapshot struct {
	SubjectID string // opaque provider player id
	Version   string // opaque provider update marker; equality means no new data

	Nickname        string
	Side            string
	Experience      int64
	PlaytimeSeconds int64
	Achievements    int

	// Counters maps a composite key path (joined with CounterKeySep) to a
	// counter value. Absent key means zero.
	Counters map[string]int64

	// Skills maps skill id to raw progress. A display level is progress/100
	// truncated.
	Skills map[string]int64

	// Masteries maps weapon/item id to raw progress.
	Masteries map[string]int64

	// SkillOrder and MasteryOrder preserve the provider's insertion order so
	// delta emission order is deterministic.
	SkillOrder   []string
	MasteryOrder []string

	FetchedAt time.Time
}

// CounterKeySep joins the elements of a composite counter key path.
const CounterKeySep = "/"

// Counter key paths known to the domain.
const (
	CounterKills       = "Kills"
	CounterDeaths      = "Deaths"
	CounterRaids       = "Sessions" + CounterKeySep + "Pmc"
	CounterSurvived    = "ExitStatus" + CounterKeySep + "Survived" + CounterKeySep + "Pmc"
	CounterLongestWins = "LongestWinStreak" + CounterKeySep + "Pmc"
)

// Subscription binds one subscriber identity to one tracked subject.
type Subscription struct {
	SubscriberID string
	SubjectID    string

	// LastNotifiedVersion is the provider version marker of the last update
	// notification delivered to the subscriber. Empty until the first delta
	// notification goes out.
	LastNotifiedVersion string

	CreatedAt time.Time
}

// FieldDelta describes a scalar change between two snapshots.
type FieldDelta struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
	Diff int64 `json:"diff"`
}

// ProgressDelta describes a change in a keyed progress value (skill or
// mastery).
type ProgressDelta struct {
	ID   string `json:"id"`
	From int64  `json:"from"`
	To   int64  `json:"to"`
	Diff int64  `json:"diff"`
}

// Delta is the structured difference between two snapshots of the same
// subject. A nil Experience means the scalar did not change.
type Delta struct {
	Experience *FieldDelta     `json:"experience,omitempty"`
	Skills     []ProgressDelta `json:"skills"`
	Masteries  []ProgressDelta `json:"masteries"`
}

// Empty reports material emptiness: no scalar change and no skill or mastery
// changes. The version gate is a separate check owned by the scheduler.
func (d Delta) Empty() bool {
	return d.Experience == nil && len(d.Skills) == 0 && len(d.Masteries) == 0
}

// CheckJob is one unit of scheduler work: re-check a single subscription
// against the provider's latest known version for its subject.
type CheckJob struct {
	Subscription Subscription

	// KnownVersion is the provider's bulk-index version for the subject at
	// enqueue time. Empty when the bulk index had no entry.
	KnownVersion string
}

// Display slot metric keys reconciled by the aggregate reconciler.
const (
	SlotAvgLevel     = "lvl"
	SlotAvgKD        = "kd"
	SlotAvgSurvival  = "sr"
	SlotTrackedCount = "tracked"
)

// SlotMetrics lists every reconciled slot key in display order.
var SlotMetrics = []string{SlotAvgLevel, SlotAvgKD, SlotAvgSurvival, SlotTrackedCount}
