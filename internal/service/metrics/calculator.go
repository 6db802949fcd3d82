// Package metrics computes aggregate statistics over the fans of an artist.
package metrics

import (
	"sort"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/service/badges"
)

// NoTier labels fans below the lowest tier badge.
const NoTier = "none"

// AverageScore returns the mean total score. Returns 0 for no scores.
func AverageScore(scores []models.FanScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum int64
	for i := range scores {
		sum += scores[i].TotalScore
	}
	return float64(sum) / float64(len(scores))
}

// MedianScore returns the median total score, averaging the two middle values
// of an even-sized set.
func MedianScore(scores []models.FanScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	values := make([]int64, len(scores))
	for i := range scores {
		values[i] = scores[i].TotalScore
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	mid := len(values) / 2
	if len(values)%2 == 0 {
		return float64(values[mid-1]+values[mid]) / 2
	}
	return float64(values[mid])
}

// SumBreakdown adds up the per-category points of every score.
func SumBreakdown(scores []models.FanScore) models.ScoreBreakdown {
	var b models.ScoreBreakdown
	for i := range scores {
		s := scores[i].Breakdown
		b.Streaming += s.Streaming
		b.Purchases += s.Purchases
		b.Social += s.Social
		b.Videos += s.Videos
		b.Events += s.Events
	}
	return b
}

// CountByConsistency counts fans per consistency level. Scores without a level
// count as sporadic.
func CountByConsistency(scores []models.FanScore) map[models.Consistency]int {
	out := map[models.Consistency]int{
		models.ConsistencyDaily:    0,
		models.ConsistencyWeekly:   0,
		models.ConsistencyMonthly:  0,
		models.ConsistencySporadic: 0,
	}
	for i := range scores {
		c := scores[i].Consistency
		if _, ok := out[c]; !ok {
			c = models.ConsistencySporadic
		}
		out[c]++
	}
	return out
}

// TierOf returns the slug of the tier badge earned at score, or NoTier.
func TierOf(score int64) string {
	for _, def := range badges.Catalog() {
		if !def.Tier {
			continue
		}
		if float64(score) >= def.Criteria.Value {
			return def.Slug
		}
	}
	return NoTier
}

// CountByTier counts fans per tier badge.
func CountByTier(scores []models.FanScore) map[string]int {
	out := map[string]int{NoTier: 0}
	for _, def := range badges.Catalog() {
		if def.Tier {
			out[def.Slug] = 0
		}
	}
	for i := range scores {
		out[TierOf(scores[i].TotalScore)]++
	}
	return out
}

// CountStreaks counts fans whose current streak is at least minDays.
func CountStreaks(scores []models.FanScore, minDays int) int {
	n := 0
	for i := range scores {
		if scores[i].ConsecutiveDays >= minDays {
			n++
		}
	}
	return n
}
