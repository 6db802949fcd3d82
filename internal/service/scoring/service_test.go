package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/fanscore/internal/metrics"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/pkg/logger"
	"github.com/aimd54/fanscore/test/mocks"
)

func newTestService(t *testing.T) (*Service, *mocks.EngagementStore, *fakeClock) {
	t.Helper()

	store := mocks.NewEngagementStore()
	clock := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc := NewServiceWithInterfaces(store, store, time.UTC, clock.Now, logger.Nop())
	return svc, store, clock
}

func play(userID, artistID string, seconds float64) Engagement {
	return Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     models.KindSongPlay,
		Metadata: models.EngagementMetadata{Duration: &seconds},
	}
}

func TestTrackEngagement_BasicPlay(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.TrackEngagement(ctx, play("u1", "a1", 30))
	require.NoError(t, err)
	require.True(t, res.Recorded())

	// 1 base x 3.0 fresh x 0.9 sporadic
	assert.Equal(t, 3, res.Event.Points)
	assert.Len(t, store.Events(), 1)

	score, err := svc.GetFanScore(ctx, "u1", "a1")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, int64(3), score.TotalScore)
	assert.Equal(t, int64(3), score.Breakdown.Streaming)
	assert.Equal(t, score.Breakdown.Total(), score.TotalScore)
}

func TestTrackEngagement_Rejections(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		input  Engagement
		reason string
	}{
		{"short play", play("u1", "a1", 5), metrics.ReasonShortPlay},
		{"play without duration", Engagement{UserID: "u1", ArtistID: "a1", Kind: models.KindSongPlay}, metrics.ReasonShortPlay},
		{"unknown kind", Engagement{UserID: "u1", ArtistID: "a1", Kind: "DANCE"}, metrics.ReasonUnknownKind},
		{"missing user", Engagement{ArtistID: "a1", Kind: models.KindArtistFollow}, metrics.ReasonInvalidInput},
		{"missing artist", Engagement{UserID: "u1", Kind: models.KindArtistFollow}, metrics.ReasonInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.TrackEngagement(ctx, tt.input)
			require.NoError(t, err)
			assert.False(t, res.Recorded())
			assert.Equal(t, tt.reason, res.Rejected)
		})
	}

	assert.Empty(t, store.Events())
	score, err := svc.GetFanScore(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestTrackEngagement_DailyCap(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	var last Result
	for i := 0; i < 101; i++ {
		var err error
		last, err = svc.TrackEngagement(ctx, play("u1", "a1", 30))
		require.NoError(t, err)
		clock.Advance(10 * time.Second)
	}

	assert.Len(t, store.Events(), 100)
	assert.Equal(t, metrics.ReasonDailyCap, last.Rejected)

	// the cap resets on the next calendar day
	clock.Advance(24 * time.Hour)
	res, err := svc.TrackEngagement(ctx, play("u1", "a1", 30))
	require.NoError(t, err)
	assert.True(t, res.Recorded())
}

func TestTrackEngagement_RapidActions(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	like := Engagement{UserID: "u1", ArtistID: "a1", Kind: models.KindVideoLike}

	for i := 0; i < 10; i++ {
		res, err := svc.TrackEngagement(ctx, like)
		require.NoError(t, err)
		require.True(t, res.Recorded(), "action %d", i)
	}

	res, err := svc.TrackEngagement(ctx, like)
	require.NoError(t, err)
	assert.Equal(t, metrics.ReasonRateLimited, res.Rejected)

	clock.Advance(61 * time.Second)
	res, err = svc.TrackEngagement(ctx, like)
	require.NoError(t, err)
	assert.True(t, res.Recorded())

	assert.Equal(t, 1, svc.PruneWindow())
}

func TestTrackEngagement_IdempotencyKey(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	e := Engagement{UserID: "u1", ArtistID: "a1", Kind: models.KindArtistFollow, IdempotencyKey: "follow-u1-a1"}

	res, err := svc.TrackEngagement(ctx, e)
	require.NoError(t, err)
	require.True(t, res.Recorded())
	require.NotNil(t, res.Event.IdempotencyKey)

	clock.Advance(time.Minute)
	res, err = svc.TrackEngagement(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, metrics.ReasonDuplicate, res.Rejected)
	assert.Len(t, store.Events(), 1)
}

func TestTrackEngagement_StreakAndConsistency(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	for d := 1; d <= 3; d++ {
		store.AddEvent(models.EngagementEvent{
			ID:         "seed" + string(rune('0'+d)),
			UserID:     "u1",
			ArtistID:   "a1",
			Kind:       models.KindSongPlay,
			Points:     1,
			OccurredAt: clock.Now().AddDate(0, 0, -d),
		})
	}

	res, err := svc.TrackEngagement(ctx, play("u1", "a1", 45))
	require.NoError(t, err)
	require.True(t, res.Recorded())

	// 1 base x 3.0 fresh x 1.3 daily, streak of 4 is below the first loyalty tier
	assert.Equal(t, 4, res.Event.Points)
	assert.Equal(t, int64(7), res.Score.TotalScore)
	assert.Equal(t, 4, res.Score.ConsecutiveDays)
	assert.Equal(t, models.ConsistencyDaily, res.Score.Consistency)
	assert.True(t, res.Score.FanSince.Equal(clock.Now().AddDate(0, 0, -3)))
}

func TestTrackEngagement_CompletionMultiplier(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.TrackSongComplete(context.Background(), "u1", "a1", "s1", 0.95)
	require.NoError(t, err)
	require.True(t, res.Recorded())

	// 3 base x 3.0 x 1.5 x 0.9 = 12.15
	assert.Equal(t, 12, res.Event.Points)
	assert.Equal(t, "s1", res.Event.Meta().SongID)
}

func TestTrackEngagement_KeepsFanSince(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	first := clock.Now()

	_, err := svc.TrackArtistFollow(ctx, "u1", "a1")
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	res, err := svc.TrackConcertAttendance(ctx, "u1", "a1", "ev1")
	require.NoError(t, err)
	require.True(t, res.Recorded())

	assert.True(t, res.Score.FanSince.Equal(first))
	assert.Equal(t, res.Score.Breakdown.Social+res.Score.Breakdown.Events, res.Score.TotalScore)
}

func TestTrackEngagement_SaveFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.SaveEngagementErr = errors.New("db down")

	_, err := svc.TrackEngagement(context.Background(), play("u1", "a1", 30))
	require.Error(t, err)

	store.SaveEngagementErr = nil
	score, err := svc.GetFanScore(context.Background(), "u1", "a1")
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestTrackPurchaseAndVideo(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	res, err := svc.TrackPurchase(ctx, "u1", "a1", models.KindAlbumPurchase, "al1", 12.99)
	require.NoError(t, err)
	require.True(t, res.Recorded())
	assert.Equal(t, "al1", res.Event.Meta().AlbumID)

	clock.Advance(time.Second)
	res, err = svc.TrackVideoView(ctx, "u1", "a1", "v1", 40)
	require.NoError(t, err)
	require.True(t, res.Recorded())

	assert.Equal(t, res.Score.Breakdown.Purchases+res.Score.Breakdown.Videos, res.Score.TotalScore)
	assert.Positive(t, res.Score.Breakdown.Purchases)
}

func TestCalculateFanBadges(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	store.PutScore(models.FanScore{UserID: "u1", ArtistID: "a1", TotalScore: 1200, ConsecutiveDays: 31})

	got, err := svc.CalculateFanBadges(ctx, "u1", "a1", 1200)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Gold Fan", got[0].Name)
	assert.Equal(t, "Consistent Fan", got[1].Name)

	got, err = svc.CalculateFanBadges(ctx, "u9", "a1", 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetUserFanScores(t *testing.T) {
	svc, store, _ := newTestService(t)

	store.PutScore(models.FanScore{UserID: "u1", ArtistID: "a1", TotalScore: 10})
	store.PutScore(models.FanScore{UserID: "u1", ArtistID: "a2", TotalScore: 90})
	store.PutScore(models.FanScore{UserID: "u2", ArtistID: "a1", TotalScore: 50})

	scores, err := svc.GetUserFanScores(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "a2", scores[0].ArtistID)
}
