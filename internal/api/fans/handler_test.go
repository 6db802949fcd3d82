//nolint:noctx // Test file uses http.NewRequest for simplicity
package fans

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/fanscore/internal/api/middleware"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/service/leaderboard"
	"github.com/aimd54/fanscore/internal/service/scoring"
	"github.com/aimd54/fanscore/pkg/logger"
)

// Mock Scoring Service
type mockScoringService struct {
	tracked []scoring.Engagement
	result  scoring.Result
	err     error
	scores  map[string]*models.FanScore
}

func (m *mockScoringService) TrackEngagement(_ context.Context, e scoring.Engagement) (scoring.Result, error) {
	m.tracked = append(m.tracked, e)
	return m.result, m.err
}

func (m *mockScoringService) GetFanScore(_ context.Context, userID, artistID string) (*models.FanScore, error) {
	return m.scores[userID+":"+artistID], m.err
}

func (m *mockScoringService) GetUserFanScores(_ context.Context, userID string) ([]models.FanScore, error) {
	var out []models.FanScore
	for _, s := range m.scores {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, m.err
}

func (m *mockScoringService) CalculateFanBadges(_ context.Context, _, _ string, score int64) ([]models.FanBadge, error) {
	if score >= 1000 {
		return []models.FanBadge{{ID: "gold_fan", Name: "Gold Fan"}}, nil
	}
	return []models.FanBadge{}, nil
}

// Mock Leaderboard Service
type mockLeaderboardService struct {
	queries []leaderboard.Query
	entries []leaderboard.Entry
	rank    *leaderboard.RankInfo
	err     error
	cleared string
}

func (m *mockLeaderboardService) GenerateArtistLeaderboard(_ context.Context, q leaderboard.Query) ([]leaderboard.Entry, error) {
	m.queries = append(m.queries, q)
	return m.entries, m.err
}

func (m *mockLeaderboardService) GetUserRank(context.Context, string, string, leaderboard.Type) (*leaderboard.RankInfo, error) {
	return m.rank, m.err
}

func (m *mockLeaderboardService) GetMultiArtistRankings(context.Context, string) ([]leaderboard.ArtistRanking, error) {
	return nil, m.err
}

func (m *mockLeaderboardService) GetTrendingFans(_ context.Context, artistID string, days int) ([]leaderboard.Entry, error) {
	m.queries = append(m.queries, leaderboard.Query{ArtistID: artistID, Limit: days})
	return m.entries, m.err
}

func (m *mockLeaderboardService) ClearArtistCache(_ context.Context, artistID string) (int, error) {
	m.cleared = artistID
	return 3, m.err
}

func setupRouter() (*gin.Engine, *mockScoringService, *mockLeaderboardService) {
	gin.SetMode(gin.TestMode)
	scores := &mockScoringService{scores: map[string]*models.FanScore{}}
	boards := &mockLeaderboardService{}
	handler := NewHandlerWithInterfaces(scores, boards, logger.Nop())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1", middleware.Identity("X-User-ID")))
	return router, scores, boards
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTrackEngagement_Recorded(t *testing.T) {
	router, scores, _ := setupRouter()
	scores.result = scoring.Result{
		Event: &models.EngagementEvent{ID: "e1", Points: 3},
		Score: &models.FanScore{UserID: "u1", ArtistID: "a1", TotalScore: 3},
	}

	w := do(router, "POST", "/api/v1/engagements", `{"artist_id":"a1","kind":"song_play","metadata":{"song_id":"s1","duration":42},"idempotency_key":"k1"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["recorded"])
	assert.NotNil(t, body["event"])

	require.Len(t, scores.tracked, 1)
	e := scores.tracked[0]
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, models.KindSongPlay, e.Kind)
	assert.Equal(t, "k1", e.IdempotencyKey)
	require.NotNil(t, e.Metadata.Duration)
	assert.Equal(t, 42.0, *e.Metadata.Duration)
}

func TestTrackEngagement_Rejected(t *testing.T) {
	router, scores, _ := setupRouter()
	scores.result = scoring.Result{Rejected: "daily_cap"}

	w := do(router, "POST", "/api/v1/engagements", `{"artist_id":"a1","kind":"SONG_PLAY"}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["recorded"])
	assert.Equal(t, "daily_cap", body["reason"])
}

func TestTrackEngagement_BadRequest(t *testing.T) {
	router, scores, _ := setupRouter()

	w := do(router, "POST", "/api/v1/engagements", `{"kind":"SONG_PLAY"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	scores.err = errors.New("db down")
	w = do(router, "POST", "/api/v1/engagements", `{"artist_id":"a1","kind":"SONG_PLAY"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetLeaderboard(t *testing.T) {
	router, _, boards := setupRouter()
	boards.entries = []leaderboard.Entry{
		{UserID: "u1", Username: "ana", FanScore: 500, Rank: 1, Percentile: 100},
	}

	w := do(router, "GET", "/api/v1/artists/a1/leaderboard?type=LOCAL&limit=10&offset=5&country=FR", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "local", body["type"])
	assert.Equal(t, float64(1), body["total_entries"])

	require.Len(t, boards.queries, 1)
	q := boards.queries[0]
	assert.Equal(t, "a1", q.ArtistID)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 5, q.Offset)
	require.NotNil(t, q.Location)
	assert.Equal(t, "FR", q.Location.Country)
}

func TestGetLeaderboard_InvalidParams(t *testing.T) {
	router, _, _ := setupRouter()

	for _, path := range []string{
		"/api/v1/artists/a1/leaderboard?limit=abc",
		"/api/v1/artists/a1/leaderboard?offset=-1",
		"/api/v1/artists/a1/trending?days=0",
	} {
		w := do(router, "GET", path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestGetFanScore(t *testing.T) {
	router, scores, _ := setupRouter()
	scores.scores["u2:a1"] = &models.FanScore{UserID: "u2", ArtistID: "a1", TotalScore: 1500}

	w := do(router, "GET", "/api/v1/artists/a1/fans/u2/score", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1500), decode(t, w)["total_score"])

	w = do(router, "GET", "/api/v1/artists/a1/fans/u3/score", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, "GET", "/api/v1/artists/a1/fans/u2/badges", "")
	assert.Equal(t, http.StatusOK, w.Code)
	badges := decode(t, w)["badges"].([]interface{})
	assert.Len(t, badges, 1)

	w = do(router, "GET", "/api/v1/users/u2/scores", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["scores"], 1)
}

func TestGetUserRank(t *testing.T) {
	router, _, boards := setupRouter()

	w := do(router, "GET", "/api/v1/artists/a1/fans/u1/rank", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	boards.rank = &leaderboard.RankInfo{UserID: "u1", ArtistID: "a1", CurrentRank: 2, TotalFans: 3}
	w = do(router, "GET", "/api/v1/artists/a1/fans/u1/rank?type=weekly", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["current_rank"])

	w = do(router, "GET", "/api/v1/users/u1/rankings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["rankings"])
}

func TestTrendingAndCache(t *testing.T) {
	router, _, boards := setupRouter()

	w := do(router, "GET", "/api/v1/artists/a1/trending", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), decode(t, w)["days"])

	w = do(router, "DELETE", "/api/v1/artists/a1/leaderboard/cache", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", boards.cleared)
	assert.Equal(t, float64(3), decode(t, w)["cleared"])
}

func TestRequiresIdentity(t *testing.T) {
	router, _, _ := setupRouter()

	req, _ := http.NewRequest("GET", "/api/v1/users/u1/scores", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
