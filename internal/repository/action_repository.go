package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

// ActionRepository stores the raw actions seen by the challenge tracker.
type ActionRepository struct {
	db *DB
}

// NewActionRepository creates a new action repository.
func NewActionRepository(db *DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// SaveAction appends a tracked action.
func (r *ActionRepository) SaveAction(ctx context.Context, action *models.EngagementAction) error {
	action.CreatedAt = action.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("failed to save action: %w", err)
	}
	return nil
}

type actionCount struct {
	ActionType models.ActionType
	Total      int64
}

// CountActionsSince counts a user's actions per type at or after since.
func (r *ActionRepository) CountActionsSince(ctx context.Context, userID string, since time.Time) (map[models.ActionType]int64, error) {
	var rows []actionCount
	err := r.db.WithContext(ctx).Model(&models.EngagementAction{}).
		Select("action_type, COUNT(*) AS total").
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Group("action_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}

	counts := make(map[models.ActionType]int64, len(rows))
	for _, row := range rows {
		counts[row.ActionType] = row.Total
	}
	return counts, nil
}

// CountDistinctSongs counts the different songs a user played since a time,
// restricted to one artist when artistID is set.
func (r *ActionRepository) CountDistinctSongs(ctx context.Context, userID, artistID string, since time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.EngagementAction{}).
		Where("user_id = ? AND action_type = ? AND created_at >= ?", userID, models.ActionSongPlay, since.UTC())
	if artistID != "" {
		query = query.Where("artist_id = ?", artistID)
	}

	var count int64
	if err := query.Distinct("target_id").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count distinct songs: %w", err)
	}
	return count, nil
}
