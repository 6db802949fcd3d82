package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/aimd54/fanscore/internal/models"
)

// FanScoreRepository stores the per-(user, artist) score aggregates.
type FanScoreRepository struct {
	db *DB
}

// NewFanScoreRepository creates a new fan score repository.
func NewFanScoreRepository(db *DB) *FanScoreRepository {
	return &FanScoreRepository{db: db}
}

// SaveFanScore upserts a score keyed by (user_id, artist_id).
func (r *FanScoreRepository) SaveFanScore(ctx context.Context, score *models.FanScore) error {
	score.FanSince = score.FanSince.UTC()
	score.LastUpdated = score.LastUpdated.UTC()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "artist_id"}},
		UpdateAll: true,
	}).Create(score).Error
	if err != nil {
		return fmt.Errorf("failed to save fan score: %w", err)
	}
	return nil
}

// GetFanScore returns the score of a user for an artist, or nil when none exists.
func (r *FanScoreRepository) GetFanScore(ctx context.Context, userID, artistID string) (*models.FanScore, error) {
	var score models.FanScore
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND artist_id = ?", userID, artistID).
		First(&score).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fan score: %w", err)
	}
	return &score, nil
}

// GetUserFanScores returns a user's scores across all artists, highest first.
func (r *FanScoreRepository) GetUserFanScores(ctx context.Context, userID string) ([]models.FanScore, error) {
	var scores []models.FanScore
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("total_score DESC").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user fan scores: %w", err)
	}
	return scores, nil
}

// GetArtistFanScores returns every fan score of an artist, unordered.
func (r *FanScoreRepository) GetArtistFanScores(ctx context.Context, artistID string) ([]models.FanScore, error) {
	var scores []models.FanScore
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get artist fan scores: %w", err)
	}
	return scores, nil
}

// ListArtistIDs returns every artist that has at least one fan score.
func (r *FanScoreRepository) ListArtistIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.FanScore{}).
		Distinct("artist_id").
		Order("artist_id").
		Pluck("artist_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return ids, nil
}
