package points

import (
	"math"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

type tier struct {
	limit float64
	mult  float64
}

var recencyTiers = []tier{
	{24, 3.0},
	{24 * 7, 2.0},
	{24 * 30, 1.5},
	{24 * 90, 1.2},
}

// loyalty tiers in descending streak order
var loyaltyTiers = []tier{
	{365, 1.5},
	{180, 1.4},
	{90, 1.3},
	{60, 1.25},
	{30, 1.2},
	{14, 1.15},
	{7, 1.1},
}

var consistencyMultipliers = map[models.Consistency]float64{
	models.ConsistencyDaily:    1.3,
	models.ConsistencyWeekly:   1.1,
	models.ConsistencyMonthly:  1.0,
	models.ConsistencySporadic: 0.9,
}

// Recency returns the time decay multiplier of an event that occurred at occurredAt.
func Recency(occurredAt, now time.Time) float64 {
	hours := now.Sub(occurredAt).Hours()
	for _, t := range recencyTiers {
		if hours <= t.limit {
			return t.mult
		}
	}
	return 1.0
}

// Completion returns the quality multiplier for a completion rate in [0, 1].
func Completion(rate float64) float64 {
	switch {
	case rate >= 0.9:
		return 1.5
	case rate >= 0.7:
		return 1.2
	case rate >= 0.3:
		return 1.0
	default:
		return 0.7
	}
}

// Loyalty returns the streak multiplier for a number of consecutive engagement days.
func Loyalty(consecutiveDays int) float64 {
	for _, t := range loyaltyTiers {
		if float64(consecutiveDays) >= t.limit {
			return t.mult
		}
	}
	return 1.0
}

// ConsistencyMultiplier returns the multiplier of a consistency level.
func ConsistencyMultiplier(c models.Consistency) float64 {
	if m, ok := consistencyMultipliers[c]; ok {
		return m
	}
	return 1.0
}

// Compose multiplies base by every factor and rounds half away from zero.
// The result is never negative.
func Compose(base int, factors ...float64) int {
	v := float64(base)
	for _, f := range factors {
		v *= f
	}
	p := int(math.Round(v))
	if p < 0 {
		return 0
	}
	return p
}
