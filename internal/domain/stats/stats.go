// Package stats provides pure derived-metric functions over profile
// snapshots: level from experience thresholds, counter lookups, and safe
// ratios. Nothing here touches the network or storage.
package stats

import (
	"strings"

	"github.com/okian/statwatch/internal/domain/model"
)

// experienceThresholds is the cumulative experience required for each level.
// Index i holds the minimum experience for level i+1.
var experienceThresholds = []int64{
	0, 1000, 4017, 8432, 14256, 21477, 30023, 39936, 51204, 63723,
	77563, 92713, 111881, 134674, 161139, 191417, 225194, 262366, 302484, 345751,
	391649, 440444, 492366, 547896, 609066, 679255, 755444, 837672, 925976, 1020396,
	1120969, 1227735, 1344260, 1470605, 1606833, 1759965, 1923579, 2097740, 2282513, 2477961,
	2684149, 2901143, 3132824, 3379281, 3640603, 3929436, 4233995, 4554372, 4890662, 5242956,
	5611348, 5995931, 6402287, 6830542, 7280825, 7753260, 8247975, 8765097, 9304752, 9876880,
	10512365, 11193911, 11929835, 12727177, 13615989, 14626588, 15864243, 17555001, 19926895,
	22926895, 26526895, 30726895, 35526895, 40926895, 46926895, 53526895, 60726895, 69126895,
	81126895,
}

// MaxLevel is the highest level the threshold table can produce.
var MaxLevel = len(experienceThresholds)

// LevelFromExperience returns the level for a cumulative experience value:
// the 1-based index of the greatest threshold not exceeding exp. Values below
// the first threshold map to level 1.
func LevelFromExperience(exp int64) int {
	for i := len(experienceThresholds) - 1; i >= 0; i-- {
		if exp >= experienceThresholds[i] {
			return i + 1
		}
	}
	return 1
}

// SkillLevel converts raw skill progress to its displayed level
// (progress/100 truncated).
func SkillLevel(progress int64) int64 {
	return progress / 100
}

// Counter returns the counter value stored under the given key path, or zero
// when the path is absent.
func Counter(s model.ProfileSnapshot, keyPath ...string) int64 {
	return s.Counters[strings.Join(keyPath, model.CounterKeySep)]
}

// Ratio returns numerator/denominator, or zero when the denominator is zero.
func Ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// percentScale converts a ratio to a percentage.
const percentScale = 100

// SurvivalPercent returns the survived/raids ratio of a snapshot as a
// percentage.
func SurvivalPercent(s model.ProfileSnapshot) float64 {
	return Ratio(s.Counters[model.CounterSurvived], s.Counters[model.CounterRaids]) * percentScale
}

// KDRatio returns the kills/deaths ratio of a snapshot.
func KDRatio(s model.ProfileSnapshot) float64 {
	return Ratio(s.Counters[model.CounterKills], s.Counters[model.CounterDeaths])
}
