// Package scoring turns fan engagements into persisted fan scores.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/aimd54/fanscore/internal/metrics"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/internal/service/badges"
	"github.com/aimd54/fanscore/internal/service/points"
	"github.com/aimd54/fanscore/pkg/logger"
)

// EngagementRepository defines the event log operations used by the engine.
type EngagementRepository interface {
	SaveEngagement(ctx context.Context, event *models.EngagementEvent) error
	GetEngagementsByArtist(ctx context.Context, userID, artistID string) ([]models.EngagementEvent, error)
	GetRecentEngagements(ctx context.Context, userID, artistID string, limit int) ([]models.EngagementEvent, error)
	GetDailyEngagementCount(ctx context.Context, userID, artistID string, kind models.EngagementKind, day time.Time) (int64, error)
	ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error)
}

// FanScoreRepository defines the fan score operations used by the engine.
type FanScoreRepository interface {
	SaveFanScore(ctx context.Context, score *models.FanScore) error
	GetFanScore(ctx context.Context, userID, artistID string) (*models.FanScore, error)
	GetUserFanScores(ctx context.Context, userID string) ([]models.FanScore, error)
}

// Engagement is one fan action submitted for scoring.
type Engagement struct {
	UserID         string
	ArtistID       string
	Kind           models.EngagementKind
	Metadata       models.EngagementMetadata
	IdempotencyKey string
}

// Result describes the outcome of TrackEngagement. Rejected engagements carry a
// reason and no event.
type Result struct {
	Event    *models.EngagementEvent
	Score    *models.FanScore
	Rejected string
}

// Recorded reports whether the engagement was persisted.
func (r Result) Recorded() bool {
	return r.Event != nil
}

// Service is the scoring engine.
type Service struct {
	engagements EngagementRepository
	scores      FanScoreRepository
	window      *ActionWindow
	loc         *time.Location
	now         func() time.Time
	log         *logger.Logger
}

// NewService creates a scoring engine backed by the repositories.
func NewService(engagementRepo *repository.EngagementRepository, scoreRepo *repository.FanScoreRepository, loc *time.Location, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(engagementRepo, scoreRepo, loc, time.Now, log)
}

// NewServiceWithInterfaces creates a scoring engine with interface dependencies (for testing).
func NewServiceWithInterfaces(engagements EngagementRepository, scores FanScoreRepository, loc *time.Location, now func() time.Time, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		engagements: engagements,
		scores:      scores,
		window:      NewActionWindow(points.MaxRapidActions, points.CooldownPeriod, now),
		loc:         loc,
		now:         now,
		log:         log.Component("scoring"),
	}
}

func (s *Service) reject(e Engagement, reason string) (Result, error) {
	metrics.RecordEngagementRejected(reason)
	s.log.Warn().
		Str("user_id", e.UserID).
		Str("artist_id", e.ArtistID).
		Str("kind", string(e.Kind)).
		Str("reason", reason).
		Msg("Engagement rejected")
	return Result{Rejected: reason}, nil
}

// TrackEngagement validates, prices and persists an engagement, then rebuilds the
// fan score of the (user, artist) pair. Validation failures are not errors: the
// engagement is dropped and the reason returned in the result.
func (s *Service) TrackEngagement(ctx context.Context, e Engagement) (Result, error) {
	if e.UserID == "" || e.ArtistID == "" {
		return s.reject(e, metrics.ReasonInvalidInput)
	}
	base, err := points.BasePoints(e.Kind)
	if err != nil {
		return s.reject(e, metrics.ReasonUnknownKind)
	}
	if e.Kind == models.KindSongPlay {
		d := e.Metadata.Duration
		if d == nil || time.Duration(*d*float64(time.Second)) < points.MinPlayDuration {
			return s.reject(e, metrics.ReasonShortPlay)
		}
	}
	if !s.window.Allow(e.UserID, e.Kind) {
		return s.reject(e, metrics.ReasonRateLimited)
	}

	if e.IdempotencyKey != "" {
		exists, err := s.engagements.ExistsByIdempotencyKey(ctx, e.IdempotencyKey)
		if err != nil {
			return Result{}, err
		}
		if exists {
			return s.reject(e, metrics.ReasonDuplicate)
		}
	}

	now := s.now().In(s.loc)

	if limit, ok := points.DailyCap(e.Kind); ok {
		count, err := s.engagements.GetDailyEngagementCount(ctx, e.UserID, e.ArtistID, e.Kind, now)
		if err != nil {
			return Result{}, err
		}
		if count >= limit {
			return s.reject(e, metrics.ReasonDailyCap)
		}
	}

	history, err := s.engagements.GetRecentEngagements(ctx, e.UserID, e.ArtistID, points.RecentHistoryLength)
	if err != nil {
		return Result{}, err
	}

	factors := []float64{points.Recency(now, now)}
	if e.Metadata.CompletionRate != nil {
		factors = append(factors, points.Completion(*e.Metadata.CompletionRate))
	}
	factors = append(factors,
		points.Loyalty(points.ConsecutiveDays(history, now, s.loc)),
		points.ConsistencyMultiplier(points.Consistency(history, now, s.loc)),
	)
	awarded := points.Compose(base, factors...)

	event := &models.EngagementEvent{
		ID:         uuid.NewString(),
		UserID:     e.UserID,
		ArtistID:   e.ArtistID,
		Kind:       e.Kind,
		Points:     awarded,
		OccurredAt: now.UTC(),
		Metadata:   datatypes.NewJSONType(e.Metadata),
	}
	if e.IdempotencyKey != "" {
		key := e.IdempotencyKey
		event.IdempotencyKey = &key
	}

	if err := s.engagements.SaveEngagement(ctx, event); err != nil {
		return Result{}, err
	}

	score, err := s.rebuild(ctx, e.UserID, e.ArtistID)
	if err != nil {
		return Result{}, err
	}

	s.window.Record(e.UserID, e.Kind)

	cat, _ := points.CategoryOf(e.Kind)
	metrics.RecordEngagementTracked(string(e.Kind))
	metrics.RecordPointsAwarded(string(cat), awarded)

	s.checkSuspicious(e, history, awarded, now)

	s.log.Debug().
		Str("user_id", e.UserID).
		Str("artist_id", e.ArtistID).
		Str("kind", string(e.Kind)).
		Int("points", awarded).
		Int64("total_score", score.TotalScore).
		Msg("Engagement tracked")

	return Result{Event: event, Score: score}, nil
}

// rebuild folds the whole event log of the pair and upserts the result.
func (s *Service) rebuild(ctx context.Context, userID, artistID string) (*models.FanScore, error) {
	start := time.Now()
	defer func() { metrics.ObserveScoreRecompute(time.Since(start)) }()

	events, err := s.engagements.GetEngagementsByArtist(ctx, userID, artistID)
	if err != nil {
		return nil, err
	}
	prior, err := s.scores.GetFanScore(ctx, userID, artistID)
	if err != nil {
		return nil, err
	}

	score := Recompute(userID, artistID, events, prior, s.now().UTC(), s.loc)
	if err := s.scores.SaveFanScore(ctx, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

// RecomputeFanScore rebuilds the fan score of a pair from its event log.
func (s *Service) RecomputeFanScore(ctx context.Context, userID, artistID string) (*models.FanScore, error) {
	return s.rebuild(ctx, userID, artistID)
}

// checkSuspicious logs pairs that earned more than the hourly threshold.
// The engagement is still accepted.
func (s *Service) checkSuspicious(e Engagement, history []models.EngagementEvent, awarded int, now time.Time) {
	total := awarded
	cutoff := now.Add(-time.Hour)
	for i := range history {
		if history[i].OccurredAt.After(cutoff) {
			total += history[i].Points
		}
	}
	if total > points.SuspiciousPerHour {
		s.log.Warn().
			Str("user_id", e.UserID).
			Str("artist_id", e.ArtistID).
			Int("points_last_hour", total).
			Msg("Suspicious engagement volume")
	}
}

// GetFanScore returns the stored score of a pair, or nil when the user never engaged.
func (s *Service) GetFanScore(ctx context.Context, userID, artistID string) (*models.FanScore, error) {
	score, err := s.scores.GetFanScore(ctx, userID, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan score: %w", err)
	}
	return score, nil
}

// GetUserFanScores returns every score of a user, highest first.
func (s *Service) GetUserFanScores(ctx context.Context, userID string) ([]models.FanScore, error) {
	scores, err := s.scores.GetUserFanScores(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user fan scores: %w", err)
	}
	return scores, nil
}

// CalculateFanBadges returns the badges earned at score. The streak of the stored
// fan score decides the consistent-fan badge.
func (s *Service) CalculateFanBadges(ctx context.Context, userID, artistID string, score int64) ([]models.FanBadge, error) {
	stored, err := s.scores.GetFanScore(ctx, userID, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan score: %w", err)
	}
	streak := 0
	if stored != nil {
		streak = stored.ConsecutiveDays
	}
	return badges.Calculate(artistID, score, streak), nil
}

// PruneWindow drops expired rapid-action entries and returns the pairs still tracked.
func (s *Service) PruneWindow() int {
	n := s.window.Prune()
	metrics.SetActionWindowKeys(n)
	return n
}
