package scoring

import (
	"time"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/service/points"
)

// Recompute folds the full event log of a (user, artist) pair into a fresh FanScore.
// It is pure: the same events, prior and now always produce the same score.
// fanSince is kept from prior when there is one, else the earliest event, else now.
func Recompute(userID, artistID string, events []models.EngagementEvent, prior *models.FanScore, now time.Time, loc *time.Location) models.FanScore {
	var breakdown models.ScoreBreakdown
	earliest := now

	for i := range events {
		e := &events[i]
		if e.OccurredAt.Before(earliest) {
			earliest = e.OccurredAt
		}

		cat, err := points.CategoryOf(e.Kind)
		if err != nil {
			continue
		}
		p := int64(e.Points)
		switch cat {
		case points.CategoryStreaming:
			breakdown.Streaming += p
		case points.CategoryPurchases:
			breakdown.Purchases += p
		case points.CategorySocial:
			breakdown.Social += p
		case points.CategoryVideos:
			breakdown.Videos += p
		case points.CategoryEvents:
			breakdown.Events += p
		}
	}

	fanSince := earliest
	if prior != nil && !prior.FanSince.IsZero() {
		fanSince = prior.FanSince
	}

	return models.FanScore{
		UserID:          userID,
		ArtistID:        artistID,
		TotalScore:      breakdown.Total(),
		Breakdown:       breakdown,
		ConsecutiveDays: points.ConsecutiveDays(events, now, loc),
		Consistency:     points.Consistency(events, now, loc),
		FanSince:        fanSince,
		LastUpdated:     now,
	}
}
