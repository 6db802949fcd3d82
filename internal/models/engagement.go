// Package models defines the persisted and derived domain types of the fan engagement system.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// EngagementKind enumerates the fan actions that earn fan score.
type EngagementKind string

// Engagement kinds.
const (
	KindSongPlay      EngagementKind = "SONG_PLAY"
	KindSongComplete  EngagementKind = "SONG_COMPLETE"
	KindAlbumPlay     EngagementKind = "ALBUM_PLAY"
	KindPlaylistAdd   EngagementKind = "PLAYLIST_ADD"
	KindSongShare     EngagementKind = "SONG_SHARE"
	KindSongRepeat    EngagementKind = "SONG_REPEAT"
	KindSongPurchase  EngagementKind = "SONG_PURCHASE"
	KindAlbumPurchase EngagementKind = "ALBUM_PURCHASE"
	KindMerchandise   EngagementKind = "MERCHANDISE"
	KindConcertTicket EngagementKind = "CONCERT_TICKET"
	KindVideoView     EngagementKind = "VIDEO_VIEW"
	KindVideoComplete EngagementKind = "VIDEO_COMPLETE"
	KindVideoLike     EngagementKind = "VIDEO_LIKE"
	KindVideoShare    EngagementKind = "VIDEO_SHARE"
	KindVideoComment  EngagementKind = "VIDEO_COMMENT"
	KindArtistFollow  EngagementKind = "ARTIST_FOLLOW"
	KindPostLike      EngagementKind = "POST_LIKE"
	KindPostComment   EngagementKind = "POST_COMMENT"
	KindPostShare     EngagementKind = "POST_SHARE"
	KindConcertAttend EngagementKind = "CONCERT_ATTENDANCE"
	KindMeetGreet     EngagementKind = "MEET_GREET"
	KindVIPExperience EngagementKind = "VIP_EXPERIENCE"
	KindEarlyAccess   EngagementKind = "NEW_RELEASE_EARLY_ACCESS"
)

// EngagementMetadata carries the optional kind-specific details of an engagement.
type EngagementMetadata struct {
	SongID         string   `json:"song_id,omitempty"`
	AlbumID        string   `json:"album_id,omitempty"`
	VideoID        string   `json:"video_id,omitempty"`
	PostID         string   `json:"post_id,omitempty"`
	EventID        string   `json:"event_id,omitempty"`
	Duration       *float64 `json:"duration,omitempty"`        // seconds listened or watched
	CompletionRate *float64 `json:"completion_rate,omitempty"` // 0..1
	PurchaseAmount *float64 `json:"purchase_amount,omitempty"`
	Platform       string   `json:"platform,omitempty"`
}

// EngagementEvent is an immutable, append-only record of one scored fan action.
type EngagementEvent struct {
	ID             string                                 `gorm:"primaryKey;size:36" json:"id"`
	UserID         string                                 `gorm:"not null;size:64;index:idx_engagement_pair,priority:1" json:"user_id"`
	ArtistID       string                                 `gorm:"not null;size:64;index:idx_engagement_pair,priority:2;index" json:"artist_id"`
	Kind           EngagementKind                         `gorm:"not null;size:40;index" json:"kind"`
	Points         int                                    `gorm:"not null;default:0" json:"points"`
	OccurredAt     time.Time                              `gorm:"not null;index:idx_engagement_pair,priority:3" json:"occurred_at"`
	Metadata       datatypes.JSONType[EngagementMetadata] `json:"metadata"`
	IdempotencyKey *string                                `gorm:"uniqueIndex;size:128" json:"idempotency_key,omitempty"`
}

// TableName specifies the table name for EngagementEvent model.
func (EngagementEvent) TableName() string {
	return "engagement_events"
}

// Meta returns the decoded metadata.
func (e *EngagementEvent) Meta() EngagementMetadata {
	return e.Metadata.Data()
}
