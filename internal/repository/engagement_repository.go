package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

// EngagementRepository is the append-only store of scored engagement events.
type EngagementRepository struct {
	db *DB
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(db *DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// SaveEngagement appends an event. Events are never updated afterwards.
func (r *EngagementRepository) SaveEngagement(ctx context.Context, event *models.EngagementEvent) error {
	event.OccurredAt = event.OccurredAt.UTC()
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to save engagement: %w", err)
	}
	return nil
}

// GetEngagementsByArtist returns every event of a user for an artist, newest first.
func (r *EngagementRepository) GetEngagementsByArtist(ctx context.Context, userID, artistID string) ([]models.EngagementEvent, error) {
	var events []models.EngagementEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND artist_id = ?", userID, artistID).
		Order("occurred_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get engagements: %w", err)
	}
	return events, nil
}

// GetRecentEngagements returns at most limit events of a user for an artist, newest first.
func (r *EngagementRepository) GetRecentEngagements(ctx context.Context, userID, artistID string, limit int) ([]models.EngagementEvent, error) {
	var events []models.EngagementEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND artist_id = ?", userID, artistID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent engagements: %w", err)
	}
	return events, nil
}

// GetDailyEngagementCount counts events of one kind on the calendar day containing day,
// using the location of day for the boundaries.
func (r *EngagementRepository) GetDailyEngagementCount(ctx context.Context, userID, artistID string, kind models.EngagementKind, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.EngagementEvent{}).
		Where("user_id = ? AND artist_id = ? AND kind = ?", userID, artistID, kind).
		Where("occurred_at >= ? AND occurred_at < ?", start.UTC(), end.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count daily engagements: %w", err)
	}
	return count, nil
}

// ExistsByIdempotencyKey reports whether an event was already stored under key.
func (r *EngagementRepository) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EngagementEvent{}).
		Where("idempotency_key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return count > 0, nil
}

type userPoints struct {
	UserID string
	Points int64
}

// SumPointsSince totals the points each fan of an artist earned at or after since.
func (r *EngagementRepository) SumPointsSince(ctx context.Context, artistID string, since time.Time) (map[string]int64, error) {
	var rows []userPoints
	err := r.db.WithContext(ctx).Model(&models.EngagementEvent{}).
		Select("user_id, SUM(points) AS points").
		Where("artist_id = ? AND occurred_at >= ?", artistID, since.UTC()).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum points: %w", err)
	}

	totals := make(map[string]int64, len(rows))
	for _, row := range rows {
		totals[row.UserID] = row.Points
	}
	return totals, nil
}
