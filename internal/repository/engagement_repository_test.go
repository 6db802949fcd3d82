package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/aimd54/fanscore/internal/models"
)

func newEvent(id, user, artist string, kind models.EngagementKind, points int, at time.Time) *models.EngagementEvent {
	return &models.EngagementEvent{
		ID:         id,
		UserID:     user,
		ArtistID:   artist,
		Kind:       kind,
		Points:     points,
		OccurredAt: at,
	}
}

func TestEngagementRepository_SaveAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	duration := 42.0
	first := newEvent("e1", "u1", "a1", models.KindSongPlay, 3, base)
	first.Metadata = datatypes.NewJSONType(models.EngagementMetadata{SongID: "s1", Duration: &duration})
	require.NoError(t, repo.SaveEngagement(ctx, first))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("e2", "u1", "a1", models.KindArtistFollow, 68, base.Add(time.Hour))))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("e3", "u1", "a2", models.KindSongPlay, 3, base.Add(2*time.Hour))))

	events, err := repo.GetEngagementsByArtist(ctx, "u1", "a1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].ID, "newest first")
	assert.Equal(t, "e1", events[1].ID)

	meta := events[1].Meta()
	assert.Equal(t, "s1", meta.SongID)
	require.NotNil(t, meta.Duration)
	assert.InDelta(t, 42.0, *meta.Duration, 0.001)

	recent, err := repo.GetRecentEngagements(ctx, "u1", "a1", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "e2", recent[0].ID)
}

func TestEngagementRepository_GetDailyEngagementCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveEngagement(ctx, newEvent(fmt.Sprintf("today-%d", i), "u1", "a1", models.KindSongPlay, 1, day.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("yesterday", "u1", "a1", models.KindSongPlay, 1, day.AddDate(0, 0, -1))))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("other-kind", "u1", "a1", models.KindPostLike, 1, day)))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("other-artist", "u1", "a2", models.KindSongPlay, 1, day)))

	count, err := repo.GetDailyEngagementCount(ctx, "u1", "a1", models.KindSongPlay, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// 02:00 UTC on the 11th is still the 10th in UTC-5
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("late", "u1", "a1", models.KindSongPlay, 1, time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC))))

	count, err = repo.GetDailyEngagementCount(ctx, "u1", "a1", models.KindSongPlay, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	loc := time.FixedZone("UTC-5", -5*3600)
	count, err = repo.GetDailyEngagementCount(ctx, "u1", "a1", models.KindSongPlay, time.Date(2025, 3, 10, 20, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestEngagementRepository_IdempotencyKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	key := "client-123"
	event := newEvent("e1", "u1", "a1", models.KindSongShare, 30, time.Now())
	event.IdempotencyKey = &key
	require.NoError(t, repo.SaveEngagement(ctx, event))

	exists, err := repo.ExistsByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByIdempotencyKey(ctx, "other")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := newEvent("e2", "u1", "a1", models.KindSongShare, 30, time.Now())
	dup.IdempotencyKey = &key
	assert.Error(t, repo.SaveEngagement(ctx, dup), "unique index rejects reused keys")
}

func TestEngagementRepository_SumPointsSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveEngagement(ctx, newEvent("e1", "u1", "a1", models.KindSongPlay, 3, now.Add(-time.Hour))))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("e2", "u1", "a1", models.KindSongShare, 27, now.Add(-2*time.Hour))))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("e3", "u2", "a1", models.KindSongPlay, 3, now.Add(-3*time.Hour))))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("old", "u2", "a1", models.KindMeetGreet, 900, now.AddDate(0, 0, -10))))
	require.NoError(t, repo.SaveEngagement(ctx, newEvent("e4", "u3", "a2", models.KindSongPlay, 3, now.Add(-time.Hour))))

	totals, err := repo.SumPointsSince(ctx, "a1", now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"u1": 30, "u2": 3}, totals)
}
