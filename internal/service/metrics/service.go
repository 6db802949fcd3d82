package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/internal/service/badges"
	"github.com/aimd54/fanscore/pkg/logger"
)

// streakDays is the streak length counted as an active streak.
const streakDays = 7

// ErrBadgeNotFound is returned for slugs missing from the badge catalog.
var ErrBadgeNotFound = errors.New("badge not found")

// ScoreRepository interface for the stored fan scores of an artist.
type ScoreRepository interface {
	GetArtistFanScores(ctx context.Context, artistID string) ([]models.FanScore, error)
}

// ProfileRepository interface for display data.
type ProfileRepository interface {
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.FanProfile, error)
}

// ArtistStats summarizes the fan base of an artist.
type ArtistStats struct {
	ArtistID      string                     `json:"artist_id"`
	TotalFans     int                        `json:"total_fans"`
	TotalPoints   int64                      `json:"total_points"`
	AverageScore  float64                    `json:"average_score"`
	MedianScore   float64                    `json:"median_score"`
	TopScore      int64                      `json:"top_score"`
	ActiveStreaks int                        `json:"active_streaks"`
	Breakdown     models.ScoreBreakdown      `json:"breakdown"`
	ByConsistency map[models.Consistency]int `json:"by_consistency"`
	ByTier        map[string]int             `json:"by_tier"`
	GeneratedAt   time.Time                  `json:"generated_at"`
}

// BadgeHolder is a fan displaying a badge for an artist.
type BadgeHolder struct {
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	FanScore        int64  `json:"fan_score"`
	ConsecutiveDays int    `json:"consecutive_days"`
}

// Service computes artist statistics from the stored fan scores.
type Service struct {
	scores   ScoreRepository
	profiles ProfileRepository
	now      func() time.Time
	log      *logger.Logger
}

// NewService creates a new metrics service.
func NewService(scoreRepo *repository.FanScoreRepository, profileRepo *repository.ProfileRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(scoreRepo, profileRepo, time.Now, log)
}

// NewServiceWithInterfaces creates a new metrics service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(scores ScoreRepository, profiles ProfileRepository, now func() time.Time, log *logger.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		scores:   scores,
		profiles: profiles,
		now:      now,
		log:      log.Component("metrics"),
	}
}

// GetArtistStats aggregates every stored fan score of an artist.
func (s *Service) GetArtistStats(ctx context.Context, artistID string) (*ArtistStats, error) {
	scores, err := s.scores.GetArtistFanScores(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan scores: %w", err)
	}

	stats := &ArtistStats{
		ArtistID:      artistID,
		TotalFans:     len(scores),
		AverageScore:  AverageScore(scores),
		MedianScore:   MedianScore(scores),
		ActiveStreaks: CountStreaks(scores, streakDays),
		Breakdown:     SumBreakdown(scores),
		ByConsistency: CountByConsistency(scores),
		ByTier:        CountByTier(scores),
		GeneratedAt:   s.now().UTC(),
	}
	for i := range scores {
		stats.TotalPoints += scores[i].TotalScore
		if scores[i].TotalScore > stats.TopScore {
			stats.TopScore = scores[i].TotalScore
		}
	}
	return stats, nil
}

// GetBadgeHolders lists the fans of an artist displaying the badge, highest
// score first. Lower tier badges are not displayed by fans holding a higher one.
func (s *Service) GetBadgeHolders(ctx context.Context, artistID, slug string) ([]BadgeHolder, error) {
	if _, ok := badges.Lookup(slug); !ok {
		return nil, ErrBadgeNotFound
	}

	scores, err := s.scores.GetArtistFanScores(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan scores: %w", err)
	}

	id := badges.BadgeID(slug, artistID)
	var holders []BadgeHolder
	var userIDs []string
	for i := range scores {
		sc := &scores[i]
		for _, b := range badges.Calculate(artistID, sc.TotalScore, sc.ConsecutiveDays) {
			if b.ID == id {
				holders = append(holders, BadgeHolder{
					UserID:          sc.UserID,
					Username:        models.FallbackUsername(sc.UserID),
					FanScore:        sc.TotalScore,
					ConsecutiveDays: sc.ConsecutiveDays,
				})
				userIDs = append(userIDs, sc.UserID)
				break
			}
		}
	}

	sort.Slice(holders, func(i, j int) bool {
		if holders[i].FanScore != holders[j].FanScore {
			return holders[i].FanScore > holders[j].FanScore
		}
		return holders[i].UserID < holders[j].UserID
	})

	if len(userIDs) > 0 && s.profiles != nil {
		profiles, err := s.profiles.GetProfiles(ctx, userIDs)
		if err != nil {
			// names fall back to placeholders
			s.log.Warn().Err(err).Str("artist_id", artistID).Msg("Failed to load fan profiles")
		}
		for i := range holders {
			if p, ok := profiles[holders[i].UserID]; ok {
				holders[i].Username = p.DisplayName()
			}
		}
	}

	s.log.Debug().
		Str("artist_id", artistID).
		Str("badge", slug).
		Int("holders", len(holders)).
		Msg("Badge holders computed")

	return holders, nil
}
