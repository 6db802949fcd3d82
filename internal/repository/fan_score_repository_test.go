package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/fanscore/internal/models"
)

func TestFanScoreRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanScoreRepository(db)
	ctx := context.Background()
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	missing, err := repo.GetFanScore(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	score := &models.FanScore{
		UserID:      "u1",
		ArtistID:    "a1",
		TotalScore:  3,
		Breakdown:   models.ScoreBreakdown{Streaming: 3},
		Consistency: models.ConsistencySporadic,
		FanSince:    since,
		LastUpdated: since,
	}
	require.NoError(t, repo.SaveFanScore(ctx, score))

	updated := *score
	updated.TotalScore = 30
	updated.Breakdown = models.ScoreBreakdown{Streaming: 3, Social: 27}
	updated.ConsecutiveDays = 2
	updated.LastUpdated = since.Add(time.Hour)
	require.NoError(t, repo.SaveFanScore(ctx, &updated))

	got, err := repo.GetFanScore(ctx, "u1", "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(30), got.TotalScore)
	assert.Equal(t, int64(27), got.Breakdown.Social)
	assert.Equal(t, 2, got.ConsecutiveDays)
	assert.True(t, got.FanSince.Equal(since))

	var rows int64
	require.NoError(t, db.Model(&models.FanScore{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "upsert must not duplicate the pair")
}

func TestFanScoreRepository_Listings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanScoreRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, s := range []models.FanScore{
		{UserID: "u1", ArtistID: "a1", TotalScore: 10},
		{UserID: "u1", ArtistID: "a2", TotalScore: 50},
		{UserID: "u1", ArtistID: "a3", TotalScore: 20},
		{UserID: "u2", ArtistID: "a1", TotalScore: 99},
	} {
		s := s
		s.FanSince, s.LastUpdated = now, now
		require.NoError(t, repo.SaveFanScore(ctx, &s))
	}

	userScores, err := repo.GetUserFanScores(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, userScores, 3)
	assert.Equal(t, "a2", userScores[0].ArtistID)
	assert.Equal(t, "a3", userScores[1].ArtistID)
	assert.Equal(t, "a1", userScores[2].ArtistID)

	artistScores, err := repo.GetArtistFanScores(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, artistScores, 2)

	ids, err := repo.ListArtistIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids)
}

func TestProfileRepository_GetProfiles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertProfile(ctx, &models.FanProfile{UserID: "u1", Username: "alice", Country: "FR", City: "Lyon"}))
	require.NoError(t, repo.UpsertProfile(ctx, &models.FanProfile{UserID: "u2", Username: "bob"}))
	require.NoError(t, repo.UpsertProfile(ctx, &models.FanProfile{UserID: "u1", Username: "alice2", Country: "FR", City: "Paris"}))

	profiles, err := repo.GetProfiles(ctx, []string{"u1", "u2", "ghost"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alice2", profiles["u1"].Username)
	assert.Equal(t, "Paris", profiles["u1"].City)

	empty, err := repo.GetProfiles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
