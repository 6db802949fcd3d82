// Package challenges provides REST API handlers for challenges, tracked actions,
// listening sessions and reward wallets.
package challenges

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/fanscore/internal/api/middleware"
	"github.com/aimd54/fanscore/internal/models"
	challengesvc "github.com/aimd54/fanscore/internal/service/challenges"
	"github.com/aimd54/fanscore/pkg/logger"
)

// ChallengeService interface for challenge progress operations.
type ChallengeService interface {
	ListChallenges(ctx context.Context, activeOnly bool) ([]models.Challenge, error)
	GetChallenge(ctx context.Context, challengeID string) (*models.Challenge, error)
	StartChallenge(ctx context.Context, userID, challengeID string) (*models.ChallengeProgress, error)
	RecordAction(ctx context.Context, userID, challengeID, actionType string, value float64) (*models.ChallengeProgress, error)
	GetProgress(ctx context.Context, userID, challengeID string) (*models.ChallengeProgress, error)
	ListProgress(ctx context.Context, userID string) ([]models.ChallengeProgress, error)
	ListActive(ctx context.Context, userID string) ([]models.ChallengeProgress, error)
	ValidateAction(challengeType models.ChallengeType, p challengesvc.ActionParams) bool
	GetWallet(ctx context.Context, userID string) (*models.UserWallet, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error)
}

// ActionTracker interface for raw action tracking.
type ActionTracker interface {
	Track(ctx context.Context, a challengesvc.Action) ([]models.ChallengeProgress, error)
	GetEngagementSummary(ctx context.Context, userID string) (*challengesvc.EngagementSummary, error)
}

// SessionManager interface for listening sessions.
type SessionManager interface {
	StartSongPlay(userID string, song challengesvc.Song) (string, error)
	UpdateSongProgress(userID, sessionID string, positionMs int64) (float64, error)
	CompleteSongPlay(ctx context.Context, userID, sessionID string, finalPositionMs int64) (bool, error)
}

// Handler handles challenge API requests.
type Handler struct {
	service  ChallengeService
	tracker  ActionTracker
	sessions SessionManager
	log      *logger.Logger
}

// NewHandler creates a new challenges handler.
func NewHandler(service *challengesvc.Service, tracker *challengesvc.Tracker, sessions *challengesvc.Sessions, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(service, tracker, sessions, log)
}

// NewHandlerWithInterfaces creates a new challenges handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(service ChallengeService, tracker ActionTracker, sessions SessionManager, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		tracker:  tracker,
		sessions: sessions,
		log:      log.Component("api.challenges"),
	}
}

// RegisterRoutes mounts the handler on an authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/challenges", h.ListChallenges)
	api.POST("/challenges/:id/start", h.StartChallenge)
	api.POST("/challenges/:id/actions", h.RecordAction)
	api.GET("/challenges/:id/progress", h.GetProgress)

	api.POST("/actions", h.TrackAction)

	api.POST("/sessions", h.StartSession)
	api.PUT("/sessions/:id/progress", h.UpdateSession)
	api.POST("/sessions/:id/complete", h.CompleteSession)

	me := api.Group("/me")
	me.GET("/challenges", h.ListMyChallenges)
	me.GET("/engagement-summary", h.GetEngagementSummary)
	me.GET("/wallet", h.GetWallet)
	me.GET("/transactions", h.ListTransactions)
}

// ListChallenges returns the challenge catalog.
// GET /api/v1/challenges?all=true.
func (h *Handler) ListChallenges(c *gin.Context) {
	activeOnly := c.Query("all") != "true"
	list, err := h.service.ListChallenges(c.Request.Context(), activeOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list challenges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve challenges")
		return
	}
	if list == nil {
		list = []models.Challenge{}
	}
	c.JSON(http.StatusOK, gin.H{"challenges": list, "total": len(list)})
}

// StartChallenge starts a challenge for the authenticated user.
// POST /api/v1/challenges/:id/start.
func (h *Handler) StartChallenge(c *gin.Context) {
	userID, challengeID := middleware.UserID(c), c.Param("id")

	p, err := h.service.StartChallenge(c.Request.Context(), userID, challengeID)
	switch {
	case errors.Is(err, challengesvc.ErrChallengeNotFound):
		h.errorResponse(c, http.StatusNotFound, "Challenge not found")
		return
	case errors.Is(err, challengesvc.ErrChallengeInactive):
		h.errorResponse(c, http.StatusConflict, "Challenge is not active")
		return
	case err != nil:
		h.log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to start challenge")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to start challenge")
		return
	}
	c.JSON(http.StatusCreated, p)
}

type recordRequest struct {
	ActionType string                     `json:"action_type" binding:"required"`
	Value      float64                    `json:"value"`
	Params     *challengesvc.ActionParams `json:"params"`
}

// RecordAction records an action against a started challenge. When params are
// given the action must pass the rules of the challenge type.
// POST /api/v1/challenges/:id/actions.
func (h *Handler) RecordAction(c *gin.Context) {
	userID, challengeID := middleware.UserID(c), c.Param("id")
	ctx := c.Request.Context()

	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Params != nil {
		challenge, err := h.service.GetChallenge(ctx, challengeID)
		if errors.Is(err, challengesvc.ErrChallengeNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Challenge not found")
			return
		}
		if err != nil {
			h.log.Error().Err(err).Str("challenge_id", challengeID).Msg("Failed to get challenge")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to record action")
			return
		}
		if !h.service.ValidateAction(challenge.Type, *req.Params) {
			h.errorResponse(c, http.StatusUnprocessableEntity, "Action does not meet the challenge rules")
			return
		}
	}

	p, err := h.service.RecordAction(ctx, userID, challengeID, req.ActionType, req.Value)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to record action")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to record action")
		return
	}
	if p == nil {
		h.errorResponse(c, http.StatusNotFound, "Challenge not started")
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetProgress returns the progress of the authenticated user on a challenge.
// GET /api/v1/challenges/:id/progress.
func (h *Handler) GetProgress(c *gin.Context) {
	userID, challengeID := middleware.UserID(c), c.Param("id")

	p, err := h.service.GetProgress(c.Request.Context(), userID, challengeID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to get progress")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve progress")
		return
	}
	if p == nil {
		h.errorResponse(c, http.StatusNotFound, "Challenge not started")
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListMyChallenges returns the progress rows of the authenticated user.
// GET /api/v1/me/challenges?status=all.
func (h *Handler) ListMyChallenges(c *gin.Context) {
	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	var (
		list []models.ChallengeProgress
		err  error
	)
	if c.Query("status") == "all" {
		list, err = h.service.ListProgress(ctx, userID)
	} else {
		list, err = h.service.ListActive(ctx, userID)
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list progress")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve challenges")
		return
	}
	if list == nil {
		list = []models.ChallengeProgress{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "challenges": list})
}

type actionRequest struct {
	Type              models.ActionType `json:"type" binding:"required"`
	TargetID          string            `json:"target_id"`
	ArtistID          string            `json:"artist_id"`
	Duration          float64           `json:"duration"`
	CompletionPercent float64           `json:"completion_percent"`
	Platform          string            `json:"platform"`
}

// TrackAction feeds a raw fan action to the challenge tracker.
// POST /api/v1/actions.
func (h *Handler) TrackAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	userID := middleware.UserID(c)
	updated, err := h.tracker.Track(c.Request.Context(), challengesvc.Action{
		Type:              req.Type,
		UserID:            userID,
		TargetID:          req.TargetID,
		ArtistID:          req.ArtistID,
		Duration:          req.Duration,
		CompletionPercent: req.CompletionPercent,
		Platform:          req.Platform,
	})
	if errors.Is(err, challengesvc.ErrInvalidAction) {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to track action")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to track action")
		return
	}
	if updated == nil {
		updated = []models.ChallengeProgress{}
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetEngagementSummary returns the 30 day action counts of the authenticated user.
// GET /api/v1/me/engagement-summary.
func (h *Handler) GetEngagementSummary(c *gin.Context) {
	userID := middleware.UserID(c)
	summary, err := h.tracker.GetEngagementSummary(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get engagement summary")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve engagement summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetWallet returns the reward wallet of the authenticated user.
// GET /api/v1/me/wallet.
func (h *Handler) GetWallet(c *gin.Context) {
	userID := middleware.UserID(c)
	wallet, err := h.service.GetWallet(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get wallet")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve wallet")
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// ListTransactions returns the latest wallet transactions of the authenticated user.
// GET /api/v1/me/transactions?limit=20.
func (h *Handler) ListTransactions(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			h.errorResponse(c, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = v
	}

	txns, err := h.service.ListTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}
	if txns == nil {
		txns = []models.PointTransaction{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "transactions": txns})
}

// StartSession opens a listening session.
// POST /api/v1/sessions.
func (h *Handler) StartSession(c *gin.Context) {
	var song challengesvc.Song
	if err := c.ShouldBindJSON(&song); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.sessions.StartSongPlay(middleware.UserID(c), song)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "song_id and artist_id are required")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

type positionRequest struct {
	PositionMs int64 `json:"position_ms"`
}

// UpdateSession records the playback position of a session.
// PUT /api/v1/sessions/:id/progress.
func (h *Handler) UpdateSession(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	completion, err := h.sessions.UpdateSongProgress(middleware.UserID(c), c.Param("id"), req.PositionMs)
	if errors.Is(err, challengesvc.ErrSessionNotFound) {
		h.errorResponse(c, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "completion_percent": completion})
}

// CompleteSession closes a session and reports whether the play counted.
// POST /api/v1/sessions/:id/complete.
func (h *Handler) CompleteSession(c *gin.Context) {
	var req positionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	userID, sessionID := middleware.UserID(c), c.Param("id")
	counted, err := h.sessions.CompleteSongPlay(c.Request.Context(), userID, sessionID, req.PositionMs)
	if errors.Is(err, challengesvc.ErrSessionNotFound) {
		h.errorResponse(c, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("session_id", sessionID).Msg("Failed to complete session")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to complete session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "counted": counted})
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
