// Package points holds the engagement point table and the multiplier functions
// that price an engagement.
package points

import (
	"errors"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

// ErrUnknownKind is returned when a kind has no entry in the point table.
var ErrUnknownKind = errors.New("unknown engagement kind")

// Category is the fan score breakdown bucket of an engagement kind.
type Category string

// Breakdown categories.
const (
	CategoryStreaming Category = "streaming"
	CategoryPurchases Category = "purchases"
	CategorySocial    Category = "social"
	CategoryVideos    Category = "videos"
	CategoryEvents    Category = "events"
)

type kindInfo struct {
	base     int
	category Category
}

var table = map[models.EngagementKind]kindInfo{
	models.KindSongPlay:      {1, CategoryStreaming},
	models.KindSongComplete:  {3, CategoryStreaming},
	models.KindAlbumPlay:     {5, CategoryStreaming},
	models.KindPlaylistAdd:   {8, CategoryStreaming},
	models.KindSongShare:     {10, CategoryStreaming},
	models.KindSongRepeat:    {2, CategoryStreaming},
	models.KindSongPurchase:  {50, CategoryPurchases},
	models.KindAlbumPurchase: {100, CategoryPurchases},
	models.KindMerchandise:   {75, CategoryPurchases},
	models.KindConcertTicket: {150, CategoryPurchases},
	models.KindVideoView:     {2, CategoryVideos},
	models.KindVideoComplete: {5, CategoryVideos},
	models.KindVideoLike:     {8, CategoryVideos},
	models.KindVideoShare:    {12, CategoryVideos},
	models.KindVideoComment:  {10, CategoryVideos},
	models.KindArtistFollow:  {25, CategorySocial},
	models.KindPostLike:      {3, CategorySocial},
	models.KindPostComment:   {5, CategorySocial},
	models.KindPostShare:     {10, CategorySocial},
	models.KindConcertAttend: {200, CategoryEvents},
	models.KindMeetGreet:     {300, CategoryEvents},
	models.KindVIPExperience: {500, CategoryEvents},
	models.KindEarlyAccess:   {100, CategoryEvents},
}

// Daily caps per (user, artist, kind). Kinds without an entry are uncapped.
var dailyCaps = map[models.EngagementKind]int64{
	models.KindSongPlay:    100,
	models.KindVideoView:   50,
	models.KindPostLike:    20,
	models.KindPostComment: 10,
	models.KindSongShare:   5,
}

// Anti-gaming thresholds.
const (
	MinPlayDuration     = 10 * time.Second
	MaxRapidActions     = 10
	CooldownPeriod      = 60 * time.Second
	SuspiciousPerHour   = 1000
	RecentHistoryLength = 100
	ConsistencySample   = 30
)

// Leaderboard limits.
const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 500
	MinSuperfans            = 10
	NewFansLimit            = 25
	TrendingLimit           = 20
)

// BasePoints returns the base point value of kind.
func BasePoints(kind models.EngagementKind) (int, error) {
	info, ok := table[kind]
	if !ok {
		return 0, ErrUnknownKind
	}
	return info.base, nil
}

// CategoryOf returns the breakdown bucket of kind.
func CategoryOf(kind models.EngagementKind) (Category, error) {
	info, ok := table[kind]
	if !ok {
		return "", ErrUnknownKind
	}
	return info.category, nil
}

// IsKnown reports whether kind is in the point table.
func IsKnown(kind models.EngagementKind) bool {
	_, ok := table[kind]
	return ok
}

// DailyCap returns the daily cap of kind and whether one is configured.
func DailyCap(kind models.EngagementKind) (int64, bool) {
	c, ok := dailyCaps[kind]
	return c, ok
}

// Kinds returns every known engagement kind.
func Kinds() []models.EngagementKind {
	kinds := make([]models.EngagementKind, 0, len(table))
	for k := range table {
		kinds = append(kinds, k)
	}
	return kinds
}
