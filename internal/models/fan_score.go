package models

import (
	"time"
)

// Consistency classifies how regularly a fan engages with an artist.
type Consistency string

// Consistency levels.
const (
	ConsistencyDaily    Consistency = "DAILY"
	ConsistencyWeekly   Consistency = "WEEKLY"
	ConsistencyMonthly  Consistency = "MONTHLY"
	ConsistencySporadic Consistency = "SPORADIC"
)

// ScoreBreakdown splits a fan score into engagement categories.
type ScoreBreakdown struct {
	Streaming int64 `gorm:"not null;default:0" json:"streaming"`
	Purchases int64 `gorm:"not null;default:0" json:"purchases"`
	Social    int64 `gorm:"not null;default:0" json:"social"`
	Videos    int64 `gorm:"not null;default:0" json:"videos"`
	Events    int64 `gorm:"not null;default:0" json:"events"`
}

// Total sums every category.
func (b ScoreBreakdown) Total() int64 {
	return b.Streaming + b.Purchases + b.Social + b.Videos + b.Events
}

// FanScore is the per-(user, artist) aggregate rebuilt from the engagement log.
type FanScore struct {
	UserID          string         `gorm:"primaryKey;size:64" json:"user_id"`
	ArtistID        string         `gorm:"primaryKey;size:64;index" json:"artist_id"`
	TotalScore      int64          `gorm:"not null;default:0;index" json:"total_score"`
	Breakdown       ScoreBreakdown `gorm:"embedded;embeddedPrefix:breakdown_" json:"breakdown"`
	ConsecutiveDays int            `gorm:"not null;default:0" json:"consecutive_days"`
	Consistency     Consistency    `gorm:"size:20" json:"consistency"`
	FanSince        time.Time      `gorm:"not null" json:"fan_since"`
	LastUpdated     time.Time      `gorm:"not null" json:"last_updated"`
}

// TableName specifies the table name for FanScore model.
func (FanScore) TableName() string {
	return "fan_scores"
}
