package challenges

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/fanscore/internal/models"
)

func TestTracker_SongPlayValues(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.seed(t, listenChallenge("listen-10", 10))

	_, err := env.svc.StartChallenge(ctx, "u1", "listen-10")
	require.NoError(t, err)

	updated, err := env.tracker.TrackSongPlay(ctx, "u1", "s1", "a1", 200, 90)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.InDelta(t, 1.5, updated[0].CurrentValue, 0.0001)

	updated, err = env.tracker.TrackSongPlay(ctx, "u1", "s2", "a1", 200, 60)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.InDelta(t, 2.5, updated[0].CurrentValue, 0.0001)

	// under half a play is ignored entirely
	updated, err = env.tracker.TrackSongPlay(ctx, "u1", "s3", "a1", 200, 30)
	require.NoError(t, err)
	assert.Empty(t, updated)

	summary, err := env.tracker.GetEngagementSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.SongPlays)
}

func TestTracker_CategoryMapping(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	social := listenChallenge("social-5", 5)
	social.Category = models.CategorySocial
	engagement := listenChallenge("engage-5", 5)
	engagement.Category = models.CategoryEngagement
	creative := listenChallenge("create-5", 5)
	creative.Category = models.CategoryCreative
	env.seed(t, social, engagement, creative, listenChallenge("listen-5", 5))

	for _, id := range []string{"social-5", "engage-5", "create-5", "listen-5"} {
		_, err := env.svc.StartChallenge(ctx, "u1", id)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		track func() ([]models.ChallengeProgress, error)
		want  []string
	}{
		{"like", func() ([]models.ChallengeProgress, error) { return env.tracker.TrackLike(ctx, "u1", "p1", "a1") }, []string{"engage-5", "social-5"}},
		{"share", func() ([]models.ChallengeProgress, error) { return env.tracker.TrackShare(ctx, "u1", "s1", "twitter", "a1") }, []string{"social-5"}},
		{"comment", func() ([]models.ChallengeProgress, error) { return env.tracker.TrackComment(ctx, "u1", "p1", "a1") }, []string{"social-5"}},
		{"playlist", func() ([]models.ChallengeProgress, error) { return env.tracker.TrackPlaylistAdd(ctx, "u1", "pl1", "a1") }, []string{"create-5", "engage-5"}},
		{"video", func() ([]models.ChallengeProgress, error) { return env.tracker.TrackVideoPlay(ctx, "u1", "v1", "a1", 60, 100) }, []string{"listen-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := tt.track()
			require.NoError(t, err)

			var ids []string
			for _, p := range updated {
				ids = append(ids, p.ChallengeID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	p, err := env.svc.GetProgress(ctx, "u1", "social-5")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, p.CurrentValue, 0.0001)

	summary, err := env.tracker.GetEngagementSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.TotalActions)
	assert.Equal(t, int64(1), summary.VideoPlays)
}

func TestTracker_InvalidAction(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.tracker.Track(context.Background(), Action{Type: "dance", UserID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = env.tracker.Track(context.Background(), Action{Type: models.ActionLike})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestTracker_UniqueSongsByArtist(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	deep := listenChallenge("a1-two-songs", 2)
	deep.Scope = models.ChallengeScope{Kind: models.ScopeArtist, ArtistID: "a1"}
	deep.Metric = models.MetricUniqueSongs
	deep.PointsReward = 40
	env.seed(t, deep)

	_, err := env.svc.StartChallenge(ctx, "u1", "a1-two-songs")
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	_, err = env.tracker.TrackSongPlay(ctx, "u1", "s1", "a1", 200, 100)
	require.NoError(t, err)
	_, err = env.tracker.TrackSongPlay(ctx, "u1", "s1", "a1", 200, 100)
	require.NoError(t, err)

	// other artists fall outside the scope
	updated, err := env.tracker.TrackSongPlay(ctx, "u1", "s9", "a2", 200, 100)
	require.NoError(t, err)
	assert.Empty(t, updated)

	p, err := env.svc.GetProgress(ctx, "u1", "a1-two-songs")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.CurrentValue, 0.0001)
	assert.Equal(t, models.ProgressActive, p.Status)

	updated, err = env.tracker.TrackSongPlay(ctx, "u1", "s2", "a1", 200, 100)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, models.ProgressCompleted, updated[0].Status)

	wallet, err := env.svc.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), wallet.PointsBalance)

	txns, err := env.svc.ListTransactions(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "a1", txns[0].Metadata["artist_id"])
}
