// Package fans provides REST API handlers for engagement tracking, fan scores and
// artist leaderboards.
package fans

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/fanscore/internal/api/middleware"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/service/leaderboard"
	"github.com/aimd54/fanscore/internal/service/scoring"
	"github.com/aimd54/fanscore/pkg/logger"
)

// ScoringService interface for scoring operations.
type ScoringService interface {
	TrackEngagement(ctx context.Context, e scoring.Engagement) (scoring.Result, error)
	GetFanScore(ctx context.Context, userID, artistID string) (*models.FanScore, error)
	GetUserFanScores(ctx context.Context, userID string) ([]models.FanScore, error)
	CalculateFanBadges(ctx context.Context, userID, artistID string, score int64) ([]models.FanBadge, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GenerateArtistLeaderboard(ctx context.Context, q leaderboard.Query) ([]leaderboard.Entry, error)
	GetUserRank(ctx context.Context, userID, artistID string, boardType leaderboard.Type) (*leaderboard.RankInfo, error)
	GetMultiArtistRankings(ctx context.Context, userID string) ([]leaderboard.ArtistRanking, error)
	GetTrendingFans(ctx context.Context, artistID string, days int) ([]leaderboard.Entry, error)
	ClearArtistCache(ctx context.Context, artistID string) (int, error)
}

// Handler handles fan API requests.
type Handler struct {
	scoringService     ScoringService
	leaderboardService LeaderboardService
	log                *logger.Logger
}

// NewHandler creates a new fans handler.
func NewHandler(scoringService *scoring.Service, leaderboardService *leaderboard.Service, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(scoringService, leaderboardService, log)
}

// NewHandlerWithInterfaces creates a new fans handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(scoringService ScoringService, leaderboardService LeaderboardService, log *logger.Logger) *Handler {
	return &Handler{
		scoringService:     scoringService,
		leaderboardService: leaderboardService,
		log:                log.Component("api.fans"),
	}
}

// RegisterRoutes mounts the handler on an authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/engagements", h.TrackEngagement)

	artists := api.Group("/artists/:artistId")
	artists.GET("/leaderboard", h.GetLeaderboard)
	artists.DELETE("/leaderboard/cache", h.ClearLeaderboardCache)
	artists.GET("/trending", h.GetTrendingFans)
	artists.GET("/fans/:userId/score", h.GetFanScore)
	artists.GET("/fans/:userId/rank", h.GetUserRank)
	artists.GET("/fans/:userId/badges", h.GetFanBadges)

	api.GET("/users/:userId/scores", h.GetUserScores)
	api.GET("/users/:userId/rankings", h.GetUserRankings)
}

type trackRequest struct {
	ArtistID       string                    `json:"artist_id" binding:"required"`
	Kind           string                    `json:"kind" binding:"required"`
	Metadata       models.EngagementMetadata `json:"metadata"`
	IdempotencyKey string                    `json:"idempotency_key"`
}

// TrackEngagement records an engagement of the authenticated user.
// POST /api/v1/engagements.
func (h *Handler) TrackEngagement(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.scoringService.TrackEngagement(c.Request.Context(), scoring.Engagement{
		UserID:         middleware.UserID(c),
		ArtistID:       req.ArtistID,
		Kind:           models.EngagementKind(strings.ToUpper(req.Kind)),
		Metadata:       req.Metadata,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.log.Error().Err(err).Str("artist_id", req.ArtistID).Msg("Failed to track engagement")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to track engagement")
		return
	}

	body := gin.H{"recorded": result.Recorded()}
	if result.Recorded() {
		body["event"] = result.Event
		body["fan_score"] = result.Score
	} else {
		body["reason"] = result.Rejected
	}
	c.JSON(http.StatusAccepted, body)
}

// GetLeaderboard returns a page of an artist leaderboard.
// GET /api/v1/artists/:artistId/leaderboard?type=weekly&limit=50&offset=0&country=FR&city=Paris.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	artistID := c.Param("artistId")

	limit, err := h.parseInt(c, "limit", 0)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := h.parseInt(c, "offset", 0)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	q := leaderboard.Query{
		ArtistID: artistID,
		Type:     leaderboard.ParseType(c.Query("type")),
		Limit:    limit,
		Offset:   offset,
	}
	if country, city := c.Query("country"), c.Query("city"); country != "" || city != "" {
		q.Location = &leaderboard.Location{Country: country, City: city}
	}

	entries, err := h.leaderboardService.GenerateArtistLeaderboard(c.Request.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artist_id":     artistID,
		"type":          q.Type,
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// ClearLeaderboardCache drops every cached board of an artist.
// DELETE /api/v1/artists/:artistId/leaderboard/cache.
func (h *Handler) ClearLeaderboardCache(c *gin.Context) {
	artistID := c.Param("artistId")
	n, err := h.leaderboardService.ClearArtistCache(c.Request.Context(), artistID)
	if err != nil {
		h.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to clear leaderboard cache")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to clear leaderboard cache")
		return
	}
	c.JSON(http.StatusOK, gin.H{"artist_id": artistID, "cleared": n})
}

// GetTrendingFans returns the fans who earned the most recently.
// GET /api/v1/artists/:artistId/trending?days=7.
func (h *Handler) GetTrendingFans(c *gin.Context) {
	artistID := c.Param("artistId")
	days, err := h.parseInt(c, "days", 7)
	if err != nil || days < 1 || days > 365 {
		h.errorResponse(c, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	entries, err := h.leaderboardService.GetTrendingFans(c.Request.Context(), artistID, days)
	if err != nil {
		h.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to get trending fans")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve trending fans")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artist_id": artistID,
		"days":      days,
		"trending":  entries,
	})
}

// GetFanScore returns the fan score of a user for an artist.
// GET /api/v1/artists/:artistId/fans/:userId/score.
func (h *Handler) GetFanScore(c *gin.Context) {
	artistID, userID := c.Param("artistId"), c.Param("userId")

	score, err := h.scoringService.GetFanScore(c.Request.Context(), userID, artistID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("artist_id", artistID).Msg("Failed to get fan score")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve fan score")
		return
	}
	if score == nil {
		h.errorResponse(c, http.StatusNotFound, "Fan score not found")
		return
	}
	c.JSON(http.StatusOK, score)
}

// GetUserRank returns the position of a user on an artist leaderboard.
// GET /api/v1/artists/:artistId/fans/:userId/rank?type=all_time.
func (h *Handler) GetUserRank(c *gin.Context) {
	artistID, userID := c.Param("artistId"), c.Param("userId")

	info, err := h.leaderboardService.GetUserRank(c.Request.Context(), userID, artistID, leaderboard.ParseType(c.Query("type")))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("artist_id", artistID).Msg("Failed to get user rank")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve rank")
		return
	}
	if info == nil {
		h.errorResponse(c, http.StatusNotFound, "Fan is not ranked")
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetFanBadges returns the badges a user earned with an artist.
// GET /api/v1/artists/:artistId/fans/:userId/badges.
func (h *Handler) GetFanBadges(c *gin.Context) {
	artistID, userID := c.Param("artistId"), c.Param("userId")
	ctx := c.Request.Context()

	score, err := h.scoringService.GetFanScore(ctx, userID, artistID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get fan score")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badges")
		return
	}
	var total int64
	if score != nil {
		total = score.TotalScore
	}

	earned, err := h.scoringService.CalculateFanBadges(ctx, userID, artistID, total)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to calculate badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badges")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"artist_id": artistID,
		"fan_score": total,
		"badges":    earned,
	})
}

// GetUserScores returns every fan score of a user.
// GET /api/v1/users/:userId/scores.
func (h *Handler) GetUserScores(c *gin.Context) {
	userID := c.Param("userId")
	scores, err := h.scoringService.GetUserFanScores(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user fan scores")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve fan scores")
		return
	}
	if scores == nil {
		scores = []models.FanScore{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "scores": scores})
}

// GetUserRankings returns the rank of a user with each of their artists.
// GET /api/v1/users/:userId/rankings.
func (h *Handler) GetUserRankings(c *gin.Context) {
	userID := c.Param("userId")
	rankings, err := h.leaderboardService.GetMultiArtistRankings(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user rankings")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve rankings")
		return
	}
	if rankings == nil {
		rankings = []leaderboard.ArtistRanking{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "rankings": rankings})
}

// parseInt extracts a non-negative integer query parameter.
func (h *Handler) parseInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %s", name, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return v, nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
