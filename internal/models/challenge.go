package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChallengeCategory groups challenges by the kind of fan activity that advances them.
type ChallengeCategory string

// Challenge categories.
const (
	CategoryListening  ChallengeCategory = "listening"
	CategorySocial     ChallengeCategory = "social"
	CategoryEngagement ChallengeCategory = "engagement"
	CategoryCreative   ChallengeCategory = "creative"
)

// ChallengeType selects the action validation rules of a challenge.
type ChallengeType string

// Challenge types.
const (
	ChallengeListenSong      ChallengeType = "LISTEN_SONG"
	ChallengeShareContent    ChallengeType = "SHARE_CONTENT"
	ChallengeCreatePlaylist  ChallengeType = "CREATE_PLAYLIST"
	ChallengeEngageCommunity ChallengeType = "ENGAGE_COMMUNITY"
)

// ScopeKind tells whether a challenge applies to any artist or to one.
type ScopeKind string

// Scope kinds.
const (
	ScopeGlobal ScopeKind = "global"
	ScopeArtist ScopeKind = "artist"
)

// ChallengeScope is the structured scope of a challenge.
type ChallengeScope struct {
	Kind     ScopeKind `gorm:"column:scope_kind;size:20;not null;default:global" json:"kind" yaml:"kind"`
	ArtistID string    `gorm:"column:scope_artist_id;size:64;index" json:"artist_id,omitempty" yaml:"artist_id"`
}

// Matches reports whether an action on artistID falls inside the scope.
func (s ChallengeScope) Matches(artistID string) bool {
	if s.Kind != ScopeArtist {
		return true
	}
	return artistID != "" && s.ArtistID == artistID
}

// ChallengeMetric decides how progress is counted.
type ChallengeMetric string

// Challenge metrics.
const (
	// MetricCount adds each action's value to the counter.
	MetricCount ChallengeMetric = "count"
	// MetricUniqueSongs sets the counter to the number of distinct songs played since the start.
	MetricUniqueSongs ChallengeMetric = "unique_songs"
)

// Challenge is a catalog entry users can start.
type Challenge struct {
	ID            string            `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Title         string            `gorm:"size:255;not null" json:"title" yaml:"title"`
	Description   string            `gorm:"type:text" json:"description" yaml:"description"`
	Category      ChallengeCategory `gorm:"size:20;not null;index" json:"category" yaml:"category"`
	Type          ChallengeType     `gorm:"size:40" json:"type" yaml:"type"`
	Scope         ChallengeScope    `gorm:"embedded" json:"scope" yaml:"scope"`
	Metric        ChallengeMetric   `gorm:"size:20;not null;default:count" json:"metric" yaml:"metric"`
	TargetValue   float64           `gorm:"not null" json:"target_value" yaml:"target_value"`
	PointsReward  int64             `gorm:"not null;default:0" json:"points_reward" yaml:"points_reward"`
	DurationHours int               `gorm:"not null;default:0" json:"duration_hours" yaml:"duration_hours"`
	IsActive      bool              `gorm:"not null" json:"is_active" yaml:"is_active"`
	CreatedAt     time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time         `json:"updated_at" yaml:"-"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// ProgressStatus is the state of a challenge progress row.
type ProgressStatus string

// Progress statuses. Completed and expired are terminal.
const (
	ProgressActive    ProgressStatus = "active"
	ProgressCompleted ProgressStatus = "completed"
	ProgressExpired   ProgressStatus = "expired"
)

// ChallengeProgress counts a user's advancement through one challenge.
type ChallengeProgress struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	UserID       string         `gorm:"not null;size:64;uniqueIndex:idx_progress_user_challenge,priority:1" json:"user_id"`
	ChallengeID  string         `gorm:"not null;size:64;uniqueIndex:idx_progress_user_challenge,priority:2" json:"challenge_id"`
	Challenge    *Challenge     `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	CurrentValue float64        `gorm:"not null;default:0" json:"current_value"`
	TargetValue  float64        `gorm:"not null" json:"target_value"`
	Status       ProgressStatus `gorm:"size:20;not null;index" json:"status"`
	StartedAt    time.Time      `gorm:"not null" json:"started_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ExpiresAt    *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// TableName specifies the table name for ChallengeProgress model.
func (ChallengeProgress) TableName() string {
	return "challenge_progress"
}

// IsExpiredAt reports whether the progress has run out of time at t.
func (p *ChallengeProgress) IsExpiredAt(t time.Time) bool {
	return p.ExpiresAt != nil && !t.Before(*p.ExpiresAt)
}

// ChallengeActionLog is the audit trail of every action recorded against a progress row.
type ChallengeActionLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProgressID  string         `gorm:"not null;size:36;index" json:"progress_id"`
	UserID      string         `gorm:"not null;size:64;index" json:"user_id"`
	ChallengeID string         `gorm:"not null;size:64" json:"challenge_id"`
	ActionType  string         `gorm:"size:50;not null" json:"action_type"`
	Value       float64        `gorm:"not null" json:"value"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for ChallengeActionLog model.
func (ChallengeActionLog) TableName() string {
	return "challenge_action_logs"
}

// ActionType is a raw fan action seen by the challenge tracker.
type ActionType string

// Tracked actions.
const (
	ActionSongPlay    ActionType = "song_play"
	ActionVideoPlay   ActionType = "video_play"
	ActionLike        ActionType = "like"
	ActionShare       ActionType = "share"
	ActionComment     ActionType = "comment"
	ActionPlaylistAdd ActionType = "playlist_add"
)

// EngagementAction is one raw action stored by the challenge tracker.
type EngagementAction struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     string         `gorm:"not null;size:64;index:idx_action_user_time,priority:1" json:"user_id"`
	ActionType ActionType     `gorm:"size:30;not null;index" json:"action_type"`
	TargetID   string         `gorm:"size:64" json:"target_id"`
	ArtistID   string         `gorm:"size:64;index" json:"artist_id,omitempty"`
	Value      float64        `gorm:"not null" json:"value"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"index:idx_action_user_time,priority:2" json:"created_at"`
}

// TableName specifies the table name for EngagementAction model.
func (EngagementAction) TableName() string {
	return "engagement_actions"
}
