package challenges

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_CompleteSongPlay(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.seed(t, listenChallenge("listen-10", 10))
	_, err := env.svc.StartChallenge(ctx, "u1", "listen-10")
	require.NoError(t, err)

	sessions := NewSessions(env.tracker, env.clock.Now)
	song := Song{ID: "s1", ArtistID: "a1", DurationMs: 200000}

	id, err := sessions.StartSongPlay("u1", song)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions.Len())

	completion, err := sessions.UpdateSongProgress("u1", id, 100000)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, completion, 0.0001)

	counted, err := sessions.CompleteSongPlay(ctx, "u1", id, 180000)
	require.NoError(t, err)
	assert.True(t, counted)
	assert.Zero(t, sessions.Len())

	p, err := env.svc.GetProgress(ctx, "u1", "listen-10")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, p.CurrentValue, 0.0001)

	// a short listen closes the session without counting
	id, err = sessions.StartSongPlay("u1", song)
	require.NoError(t, err)
	_, err = sessions.UpdateSongProgress("u1", id, 120000)
	require.NoError(t, err)
	counted, err = sessions.CompleteSongPlay(ctx, "u1", id, 0)
	require.NoError(t, err)
	assert.False(t, counted)

	p, err = env.svc.GetProgress(ctx, "u1", "listen-10")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, p.CurrentValue, 0.0001)
}

func TestSessions_Ownership(t *testing.T) {
	env := setupTestEnv(t)
	sessions := NewSessions(env.tracker, env.clock.Now)

	_, err := sessions.StartSongPlay("u1", Song{ID: "s1"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	id, err := sessions.StartSongPlay("u1", Song{ID: "s1", ArtistID: "a1", DurationMs: 1000})
	require.NoError(t, err)

	_, err = sessions.UpdateSongProgress("u2", id, 500)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = sessions.CompleteSongPlay(context.Background(), "u2", id, 1000)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, sessions.Len())

	_, err = sessions.CompleteSongPlay(context.Background(), "u1", "missing", 1000)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessions_Prune(t *testing.T) {
	env := setupTestEnv(t)
	sessions := NewSessions(env.tracker, env.clock.Now)
	song := Song{ID: "s1", ArtistID: "a1", DurationMs: 1000}

	_, err := sessions.StartSongPlay("u1", song)
	require.NoError(t, err)
	env.clock.Advance(3 * time.Hour)
	_, err = sessions.StartSongPlay("u2", song)
	require.NoError(t, err)

	assert.Equal(t, 1, sessions.Prune(2*time.Hour))
	assert.Equal(t, 1, sessions.Len())
}
