package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aimd54/fanscore/internal/models"
)

func TestRecompute(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := []models.EngagementEvent{
		{Kind: models.KindSongPlay, Points: 3, OccurredAt: now},
		{Kind: models.KindMerchandise, Points: 200, OccurredAt: now.Add(-time.Hour)},
		{Kind: models.KindPostShare, Points: 27, OccurredAt: now.AddDate(0, 0, -1)},
		{Kind: models.KindVideoView, Points: 5, OccurredAt: now.AddDate(0, 0, -2)},
		{Kind: models.KindMeetGreet, Points: 810, OccurredAt: now.AddDate(0, 0, -5)},
		{Kind: "RETIRED_KIND", Points: 99, OccurredAt: now.AddDate(0, 0, -9)},
	}

	got := Recompute("u1", "a1", events, nil, now, time.UTC)

	assert.Equal(t, models.ScoreBreakdown{Streaming: 3, Purchases: 200, Social: 27, Videos: 5, Events: 810}, got.Breakdown)
	assert.Equal(t, int64(1045), got.TotalScore)
	assert.Equal(t, got.Breakdown.Total(), got.TotalScore)
	assert.Equal(t, 3, got.ConsecutiveDays)
	assert.True(t, got.FanSince.Equal(now.AddDate(0, 0, -9)))
	assert.True(t, got.LastUpdated.Equal(now))

	// same inputs, same score
	again := Recompute("u1", "a1", events, nil, now, time.UTC)
	assert.Equal(t, got, again)
}

func TestRecompute_PriorFanSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	since := now.AddDate(-1, 0, 0)
	prior := &models.FanScore{FanSince: since, TotalScore: 999}

	got := Recompute("u1", "a1", nil, prior, now, time.UTC)

	assert.Zero(t, got.TotalScore)
	assert.True(t, got.FanSince.Equal(since))
	assert.Equal(t, models.ConsistencySporadic, got.Consistency)
	assert.Zero(t, got.ConsecutiveDays)
}
