// Package diff computes structured deltas between two profile snapshots of
// the same subject. Compute is a pure function: no I/O, no hidden state.
package diff

import (
	"sort"

	"github.com/okian/statwatch/internal/domain/model"
)

// Compute returns the delta from previous to current.
//
// The experience delta is emitted only when the value changed. Skill and
// mastery deltas are emitted for ids present in both snapshots whose progress
// differs; ids that appear only on one side are ignored. Entries follow the
// current snapshot's insertion order; display ordering is the caller's
// concern.
func Compute(current, previous model.ProfileSnapshot) model.Delta {
	d := model.Delta{
		Skills:    []model.ProgressDelta{},
		Masteries: []model.ProgressDelta{},
	}

	if current.Experience != previous.Experience {
		d.Experience = &model.FieldDelta{
			From: previous.Experience,
			To:   current.Experience,
			Diff: current.Experience - previous.Experience,
		}
	}

	d.Skills = progressDeltas(current.SkillOrder, current.Skills, previous.Skills)
	d.Masteries = progressDeltas(current.MasteryOrder, current.Masteries, previous.Masteries)

	return d
}

func progressDeltas(order []string, current, previous map[string]int64) []model.ProgressDelta {
	out := []model.ProgressDelta{}
	for _, id := range order {
		cur, ok := current[id]
		if !ok {
			continue
		}
		prev, ok := previous[id]
		if !ok {
			// Ids absent from the previous snapshot are ignored; there is no
			// "newly unlocked" event in this model.
			continue
		}
		if cur == prev {
			continue
		}
		out = append(out, model.ProgressDelta{ID: id, From: prev, To: cur, Diff: cur - prev})
	}
	return out
}

// TopByDiff returns up to k entries sorted by descending diff. It copies the
// input; the delta itself keeps snapshot order. This is a presentation helper
// layered on top of Compute.
func TopByDiff(deltas []model.ProgressDelta, k int) []model.ProgressDelta {
	out := make([]model.ProgressDelta, len(deltas))
	copy(out, deltas)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Diff > out[j].Diff })
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
