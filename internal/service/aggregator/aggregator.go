// Package aggregator provides batch rebuilding of stored fan scores from the
// engagement log.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/pkg/logger"
)

// ScoreStore lists the stored fan scores.
type ScoreStore interface {
	ListArtistIDs(ctx context.Context) ([]string, error)
	GetArtistFanScores(ctx context.Context, artistID string) ([]models.FanScore, error)
}

// Recomputer rebuilds one fan score from its events.
type Recomputer interface {
	RecomputeFanScore(ctx context.Context, userID, artistID string) (*models.FanScore, error)
}

// CacheClearer drops cached leaderboards of an artist.
type CacheClearer interface {
	ClearArtistCache(ctx context.Context, artistID string) (int, error)
}

// Summary reports what a refresh run did.
type Summary struct {
	Artists int `json:"artists"`
	Scores  int `json:"scores"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// Service refreshes stored fan scores. Streaks and consistency depend on the
// current day, so a score that saw no new engagement goes stale until rebuilt.
type Service struct {
	scores     ScoreStore
	recomputer Recomputer
	cache      CacheClearer
	log        *logger.Logger
}

// NewService creates a new aggregator service. cache may be nil.
func NewService(scores ScoreStore, recomputer Recomputer, cache CacheClearer, log *logger.Logger) *Service {
	return &Service{
		scores:     scores,
		recomputer: recomputer,
		cache:      cache,
		log:        log.Component("aggregator"),
	}
}

// RefreshAll rebuilds every stored fan score. Failures on one score are counted
// and do not stop the run.
func (s *Service) RefreshAll(ctx context.Context) (*Summary, error) {
	start := time.Now()
	s.log.Info().Msg("Starting fan score refresh")

	artists, err := s.scores.ListArtistIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}

	total := &Summary{}
	for _, artistID := range artists {
		sum, err := s.RefreshArtist(ctx, artistID)
		if err != nil {
			s.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to refresh artist")
			total.Failed++
			continue
		}
		total.Artists++
		total.Scores += sum.Scores
		total.Changed += sum.Changed
		total.Failed += sum.Failed
	}

	s.log.Info().
		Int("artists", total.Artists).
		Int("scores", total.Scores).
		Int("changed", total.Changed).
		Int("failed", total.Failed).
		Dur("duration", time.Since(start)).
		Msg("Fan score refresh completed")

	return total, nil
}

// RefreshArtist rebuilds the fan scores of one artist and drops its cached
// leaderboards when any score changed.
func (s *Service) RefreshArtist(ctx context.Context, artistID string) (*Summary, error) {
	stored, err := s.scores.GetArtistFanScores(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan scores: %w", err)
	}

	sum := &Summary{Artists: 1}
	for i := range stored {
		before := stored[i]
		after, err := s.recomputer.RecomputeFanScore(ctx, before.UserID, artistID)
		if err != nil {
			s.log.Warn().Err(err).
				Str("user_id", before.UserID).
				Str("artist_id", artistID).
				Msg("Failed to recompute fan score")
			sum.Failed++
			continue
		}
		sum.Scores++
		if changed(before, after) {
			sum.Changed++
		}
	}

	if sum.Changed > 0 && s.cache != nil {
		if _, err := s.cache.ClearArtistCache(ctx, artistID); err != nil {
			s.log.Warn().Err(err).Str("artist_id", artistID).Msg("Failed to clear leaderboard cache")
		}
	}

	s.log.Debug().
		Str("artist_id", artistID).
		Int("scores", sum.Scores).
		Int("changed", sum.Changed).
		Msg("Artist refreshed")

	return sum, nil
}

func changed(before models.FanScore, after *models.FanScore) bool {
	return after == nil ||
		before.TotalScore != after.TotalScore ||
		before.ConsecutiveDays != after.ConsecutiveDays ||
		before.Consistency != after.Consistency
}
