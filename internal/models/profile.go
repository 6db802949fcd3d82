package models

import (
	"time"
)

// FanProfile is the public part of a user profile shown on leaderboards.
type FanProfile struct {
	UserID         string    `gorm:"primaryKey;size:64" json:"user_id"`
	Username       string    `gorm:"size:255" json:"username"`
	ProfilePicture string    `gorm:"type:text" json:"profile_picture"`
	Country        string    `gorm:"size:100;index" json:"country"`
	City           string    `gorm:"size:100" json:"city"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for FanProfile model.
func (FanProfile) TableName() string {
	return "fan_profiles"
}

// DisplayName falls back to a short id-based name when no username is set.
func (p *FanProfile) DisplayName() string {
	if p != nil && p.Username != "" {
		return p.Username
	}
	id := ""
	if p != nil {
		id = p.UserID
	}
	return FallbackUsername(id)
}

// FallbackUsername builds the placeholder name for users without a profile.
func FallbackUsername(userID string) string {
	if len(userID) > 6 {
		userID = userID[:6]
	}
	return "User" + userID
}
