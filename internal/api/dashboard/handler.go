// Package dashboard provides REST API handlers for artist dashboards.
// It exposes the badge catalog, badge holders and fan base statistics.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/service/badges"
	"github.com/aimd54/fanscore/internal/service/metrics"
	"github.com/aimd54/fanscore/pkg/logger"
)

// StatsService interface for artist statistics.
type StatsService interface {
	GetArtistStats(ctx context.Context, artistID string) (*metrics.ArtistStats, error)
	GetBadgeHolders(ctx context.Context, artistID, slug string) ([]metrics.BadgeHolder, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	statsService StatsService
	log          *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(statsService *metrics.Service, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(statsService, log)
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(statsService StatsService, log *logger.Logger) *Handler {
	return &Handler{
		statsService: statsService,
		log:          log.Component("api.dashboard"),
	}
}

// RegisterRoutes mounts the handler on an authenticated group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/badges", h.GetBadgeCatalog)
	api.GET("/badges/:slug", h.GetBadge)
	api.GET("/artists/:artistId/stats", h.GetArtistStats)
	api.GET("/artists/:artistId/badges/:slug/holders", h.GetBadgeHolders)
}

// badgeView is the public shape of a badge definition.
type badgeView struct {
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Icon        string             `json:"icon"`
	Rarity      models.BadgeRarity `json:"rarity"`
	Metric      string             `json:"metric"`
	Threshold   int64              `json:"threshold"`
	Tier        bool               `json:"tier"`
}

func toView(def badges.Definition) badgeView {
	return badgeView{
		Slug:        def.Slug,
		Name:        def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		Rarity:      def.Rarity,
		Metric:      def.Criteria.Metric,
		Threshold:   int64(def.Criteria.Value),
		Tier:        def.Tier,
	}
}

// GetBadgeCatalog returns every badge a fan can earn.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog := badges.Catalog()
	views := make([]badgeView, 0, len(catalog))
	for _, def := range catalog {
		views = append(views, toView(def))
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       views,
		"total_badges": len(views),
	})
}

// GetBadge returns one badge definition.
// GET /api/v1/badges/:slug.
func (h *Handler) GetBadge(c *gin.Context) {
	def, ok := badges.Lookup(c.Param("slug"))
	if !ok {
		h.errorResponse(c, http.StatusNotFound, "Badge not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"badge": toView(def)})
}

// GetArtistStats returns fan base statistics for an artist.
// GET /api/v1/artists/:artistId/stats.
func (h *Handler) GetArtistStats(c *gin.Context) {
	artistID := c.Param("artistId")

	stats, err := h.statsService.GetArtistStats(c.Request.Context(), artistID)
	if err != nil {
		h.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to get artist stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve artist statistics")
		return
	}

	h.log.Debug().
		Str("artist_id", artistID).
		Int("fans", stats.TotalFans).
		Msg("Retrieved artist stats")

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetBadgeHolders returns the fans of an artist displaying a badge.
// GET /api/v1/artists/:artistId/badges/:slug/holders?limit=50.
func (h *Handler) GetBadgeHolders(c *gin.Context) {
	artistID := c.Param("artistId")
	slug := c.Param("slug")

	limit, err := h.parseLimit(c, 50)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	holders, err := h.statsService.GetBadgeHolders(c.Request.Context(), artistID, slug)
	if errors.Is(err, metrics.ErrBadgeNotFound) {
		h.errorResponse(c, http.StatusNotFound, "Badge not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("artist_id", artistID).Str("badge", slug).Msg("Failed to get badge holders")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge holders")
		return
	}

	totalHolders := len(holders)
	if len(holders) > limit {
		holders = holders[:limit]
	}
	if holders == nil {
		holders = []metrics.BadgeHolder{}
	}

	c.JSON(http.StatusOK, gin.H{
		"artist_id":     artistID,
		"badge":         slug,
		"holders":       holders,
		"total_holders": totalHolders,
		"limited_to":    len(holders),
		"generated_at":  time.Now().UTC(),
	})
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}
	return limit, nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
