package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/fanscore/internal/models"
)

// ChallengeRepository handles challenge catalog and progress operations.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// UpsertChallenge creates or replaces a catalog entry.
func (r *ChallengeRepository) UpsertChallenge(ctx context.Context, challenge *models.Challenge) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(challenge).Error
	if err != nil {
		return fmt.Errorf("failed to upsert challenge %s: %w", challenge.ID, err)
	}
	return nil
}

// GetChallenge returns a challenge by id, or nil when it does not exist.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&challenge).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &challenge, nil
}

// ListChallenges returns the catalog, optionally only the active entries.
func (r *ChallengeRepository) ListChallenges(ctx context.Context, activeOnly bool) ([]models.Challenge, error) {
	var challenges []models.Challenge
	query := r.db.WithContext(ctx).Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&challenges).Error; err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

// ResetProgress replaces any existing progress of the same user and challenge with progress.
func (r *ChallengeRepository) ResetProgress(ctx context.Context, progress *models.ChallengeProgress) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND challenge_id = ?", progress.UserID, progress.ChallengeID).
			Delete(&models.ChallengeProgress{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous progress: %w", err)
		}
		if err := tx.Omit("Challenge").Create(progress).Error; err != nil {
			return fmt.Errorf("failed to create progress: %w", err)
		}
		return nil
	})
}

// GetProgress returns a user's progress on a challenge, or nil when not started.
func (r *ChallengeRepository) GetProgress(ctx context.Context, userID, challengeID string) (*models.ChallengeProgress, error) {
	var progress models.ChallengeProgress
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&progress).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

// ListActiveProgress returns a user's active progress rows with their challenges.
func (r *ChallengeRepository) ListActiveProgress(ctx context.Context, userID string) ([]models.ChallengeProgress, error) {
	var rows []models.ChallengeProgress
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("user_id = ? AND status = ?", userID, models.ProgressActive).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active progress: %w", err)
	}
	return rows, nil
}

// ListProgress returns every progress row of a user, newest first.
func (r *ChallengeRepository) ListProgress(ctx context.Context, userID string) ([]models.ChallengeProgress, error) {
	var rows []models.ChallengeProgress
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return rows, nil
}

// IncrementProgress adds delta to an active progress counter. See applyProgress.
func (r *ChallengeRepository) IncrementProgress(ctx context.Context, progressID string, entry *models.ChallengeActionLog, delta float64, now time.Time) (*models.ChallengeProgress, bool, error) {
	return r.applyProgress(ctx, progressID, entry, gorm.Expr("current_value + ?", delta), now)
}

// SetProgressValue overwrites an active progress counter. See applyProgress.
func (r *ChallengeRepository) SetProgressValue(ctx context.Context, progressID string, entry *models.ChallengeActionLog, value float64, now time.Time) (*models.ChallengeProgress, bool, error) {
	return r.applyProgress(ctx, progressID, entry, value, now)
}

// applyProgress appends entry to the action log and updates the counter of an active
// progress row in one transaction, completing the row when it reaches its target.
// The returned flag is true only for the call that moved the row to completed.
// A row that is no longer active is returned unchanged and no log entry is written.
func (r *ChallengeRepository) applyProgress(ctx context.Context, progressID string, entry *models.ChallengeActionLog, value interface{}, now time.Time) (*models.ChallengeProgress, bool, error) {
	now = now.UTC()
	var (
		progress  models.ChallengeProgress
		completed bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChallengeProgress{}).
			Where("id = ? AND status = ?", progressID, models.ProgressActive).
			Updates(map[string]interface{}{"current_value": value, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to update progress: %w", res.Error)
		}

		if res.RowsAffected > 0 {
			entry.ProgressID = progressID
			entry.CreatedAt = now
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to write action log: %w", err)
			}

			done := tx.Model(&models.ChallengeProgress{}).
				Where("id = ? AND status = ? AND current_value >= target_value", progressID, models.ProgressActive).
				Updates(map[string]interface{}{"status": models.ProgressCompleted, "completed_at": now})
			if done.Error != nil {
				return fmt.Errorf("failed to complete progress: %w", done.Error)
			}
			completed = done.RowsAffected > 0
		}

		if err := tx.Preload("Challenge").Where("id = ?", progressID).First(&progress).Error; err != nil {
			return fmt.Errorf("failed to reload progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &progress, completed, nil
}

// MarkExpired moves one active progress row to expired.
func (r *ChallengeRepository) MarkExpired(ctx context.Context, progressID string, now time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.ChallengeProgress{}).
		Where("id = ? AND status = ?", progressID, models.ProgressActive).
		Updates(map[string]interface{}{"status": models.ProgressExpired, "updated_at": now.UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to expire progress: %w", err)
	}
	return nil
}

// ExpireStale moves every active progress row whose deadline has passed to expired.
func (r *ChallengeRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ChallengeProgress{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.ProgressActive, now.UTC()).
		Updates(map[string]interface{}{"status": models.ProgressExpired, "updated_at": now.UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire stale progress: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GetActionLog returns the action log of a progress row, oldest first.
func (r *ChallengeRepository) GetActionLog(ctx context.Context, progressID string) ([]models.ChallengeActionLog, error) {
	var entries []models.ChallengeActionLog
	err := r.db.WithContext(ctx).
		Where("progress_id = ?", progressID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get action log: %w", err)
	}
	return entries, nil
}
