package challenges

import (
	"strings"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

// Per-type action rules.
const (
	minListenRatio         = 0.8
	maxSkips               = 3
	maxSimultaneousStreams = 2

	minTimeBetweenShares = 30 * time.Minute

	minPlaylistSongs = 5
	maxPlaylistSongs = 50

	minCommentLength   = 10
	maxCommentsPerHour = 10
	minTimeBetweenLike = 5 * time.Minute
)

// ActionParams carries the facts checked by the rules of a challenge type. Only
// the fields of the relevant type are read.
type ActionParams struct {
	// LISTEN_SONG
	ListenedMs          int64 `json:"listened_ms"`
	TotalDurationMs     int64 `json:"total_duration_ms"`
	Skips               int   `json:"skips"`
	SimultaneousStreams int   `json:"simultaneous_streams"`

	// SHARE_CONTENT
	ContentID        string    `json:"content_id"`
	SharedContentIDs []string  `json:"shared_content_ids"`
	LastShareAt      time.Time `json:"last_share_at"`

	// CREATE_PLAYLIST
	SongCount   int    `json:"song_count"`
	Description string `json:"description"`

	// ENGAGE_COMMUNITY
	CommentLength      int       `json:"comment_length"`
	CommentsInLastHour int       `json:"comments_in_last_hour"`
	LastLikeAt         time.Time `json:"last_like_at"`
}

// ValidateAction reports whether an action satisfies the rules of a challenge type.
// Types without rules accept every action.
func (s *Service) ValidateAction(challengeType models.ChallengeType, p ActionParams) bool {
	return validateAction(challengeType, p, s.clock())
}

func validateAction(challengeType models.ChallengeType, p ActionParams, now time.Time) bool {
	switch challengeType {
	case models.ChallengeListenSong:
		return float64(p.ListenedMs) >= float64(p.TotalDurationMs)*minListenRatio &&
			p.Skips <= maxSkips &&
			p.SimultaneousStreams <= maxSimultaneousStreams

	case models.ChallengeShareContent:
		if !p.LastShareAt.IsZero() && now.Sub(p.LastShareAt) < minTimeBetweenShares {
			return false
		}
		for _, id := range p.SharedContentIDs {
			if id == p.ContentID {
				return false
			}
		}
		return true

	case models.ChallengeCreatePlaylist:
		return p.SongCount >= minPlaylistSongs &&
			p.SongCount <= maxPlaylistSongs &&
			strings.TrimSpace(p.Description) != ""

	case models.ChallengeEngageCommunity:
		if !p.LastLikeAt.IsZero() && now.Sub(p.LastLikeAt) < minTimeBetweenLike {
			return false
		}
		return p.CommentLength >= minCommentLength &&
			p.CommentsInLastHour <= maxCommentsPerHour

	default:
		return true
	}
}
