package points

import (
	"math"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ConsecutiveDays returns the engagement streak used for the loyalty multiplier:
// 0 without history, otherwise 1 plus the number of unbroken calendar days with
// at least one event counting back from yesterday.
func ConsecutiveDays(events []models.EngagementEvent, now time.Time, loc *time.Location) int {
	if len(events) == 0 {
		return 0
	}

	days := make(map[time.Time]struct{}, len(events))
	for i := range events {
		days[dayOf(events[i].OccurredAt, loc)] = struct{}{}
	}

	streak := 1
	cursor := dayOf(now, loc).AddDate(0, 0, -1)
	for {
		if _, ok := days[cursor]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// Consistency classifies engagement regularity from a newest-first sample of events.
// Only the first ConsistencySample events are considered.
func Consistency(events []models.EngagementEvent, now time.Time, loc *time.Location) models.Consistency {
	if len(events) == 0 {
		return models.ConsistencySporadic
	}
	if len(events) > ConsistencySample {
		events = events[:ConsistencySample]
	}

	oldest := events[0].OccurredAt
	days := make(map[time.Time]struct{}, len(events))
	for i := range events {
		if events[i].OccurredAt.Before(oldest) {
			oldest = events[i].OccurredAt
		}
		days[dayOf(events[i].OccurredAt, loc)] = struct{}{}
	}

	span := math.Floor(now.Sub(oldest).Hours() / 24)
	if span < 1 {
		span = 1
	}
	ratio := float64(len(days)) / span

	switch {
	case ratio > 0.8:
		return models.ConsistencyDaily
	case ratio > 0.3:
		return models.ConsistencyWeekly
	case ratio > 0.1:
		return models.ConsistencyMonthly
	default:
		return models.ConsistencySporadic
	}
}
