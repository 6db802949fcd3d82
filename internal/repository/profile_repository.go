package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/aimd54/fanscore/internal/models"
)

// ProfileRepository reads public fan profiles.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// UpsertProfile creates or replaces a profile.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile *models.FanProfile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "profile_picture", "country", "city", "updated_at"}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfiles returns the profiles of the given users keyed by user id. Unknown ids are absent.
func (r *ProfileRepository) GetProfiles(ctx context.Context, userIDs []string) (map[string]models.FanProfile, error) {
	result := make(map[string]models.FanProfile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var profiles []models.FanProfile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}

	for _, p := range profiles {
		result[p.UserID] = p
	}
	return result, nil
}
