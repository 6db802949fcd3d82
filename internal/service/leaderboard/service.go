// Package leaderboard builds ranked, cached fan leaderboards per artist.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aimd54/fanscore/internal/cache"
	"github.com/aimd54/fanscore/internal/metrics"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/internal/service/badges"
	"github.com/aimd54/fanscore/internal/service/points"
	"github.com/aimd54/fanscore/pkg/logger"
)

// ScoreRepository interface for fan score reads.
type ScoreRepository interface {
	GetArtistFanScores(ctx context.Context, artistID string) ([]models.FanScore, error)
	GetUserFanScores(ctx context.Context, userID string) ([]models.FanScore, error)
}

// EngagementRepository interface for event log reads.
type EngagementRepository interface {
	SumPointsSince(ctx context.Context, artistID string, since time.Time) (map[string]int64, error)
	GetRecentEngagements(ctx context.Context, userID, artistID string, limit int) ([]models.EngagementEvent, error)
}

// ProfileRepository interface for display data.
type ProfileRepository interface {
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.FanProfile, error)
}

// Type selects the leaderboard variant.
type Type string

// Leaderboard types.
const (
	TypeAllTime   Type = "all_time"
	TypeMonthly   Type = "monthly"
	TypeWeekly    Type = "weekly"
	TypeDaily     Type = "daily"
	TypeNewFans   Type = "new_fans"
	TypeSuperfans Type = "superfans"
	TypeLocal     Type = "local"
)

const (
	cachePrefix        = "leaderboard:"
	newFanWindow       = 30 * 24 * time.Hour
	recentActivitySize = 10
	avatarURL          = "https://api.dicebear.com/7.x/avataaars/svg?seed="
)

// windows of the time-windowed types
var windows = map[Type]time.Duration{
	TypeMonthly: 30 * 24 * time.Hour,
	TypeWeekly:  7 * 24 * time.Hour,
	TypeDaily:   24 * time.Hour,
}

// ParseType maps a query value to a Type. Unknown values fall back to all_time.
func ParseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeAllTime, TypeMonthly, TypeWeekly, TypeDaily, TypeNewFans, TypeSuperfans, TypeLocal:
		return t
	default:
		return TypeAllTime
	}
}

// Location narrows a local leaderboard. Empty fields match anything.
type Location struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

func (l *Location) matches(p models.FanProfile) bool {
	if l.Country != "" && !strings.EqualFold(l.Country, p.Country) {
		return false
	}
	if l.City != "" && !strings.EqualFold(l.City, p.City) {
		return false
	}
	return true
}

// Query describes one leaderboard page.
type Query struct {
	ArtistID string
	Type     Type
	Limit    int
	Offset   int
	Location *Location
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	UserID         string            `json:"user_id"`
	ArtistID       string            `json:"artist_id"`
	Username       string            `json:"username"`
	ProfilePicture string            `json:"profile_picture"`
	FanScore       int64             `json:"fan_score"`
	Rank           int               `json:"rank"`
	Percentile     int               `json:"percentile"`
	Badges         []models.FanBadge `json:"badges"`
}

// Service handles leaderboard generation and user rankings.
type Service struct {
	scores      ScoreRepository
	engagements EngagementRepository
	profiles    ProfileRepository
	cache       cache.Cache
	ttl         time.Duration
	now         func() time.Time
	log         *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	scoreRepo *repository.FanScoreRepository,
	engagementRepo *repository.EngagementRepository,
	profileRepo *repository.ProfileRepository,
	c cache.Cache,
	ttl time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(scoreRepo, engagementRepo, profileRepo, c, ttl, time.Now, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	scores ScoreRepository,
	engagements EngagementRepository,
	profiles ProfileRepository,
	c cache.Cache,
	ttl time.Duration,
	now func() time.Time,
	log *logger.Logger,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		scores:      scores,
		engagements: engagements,
		profiles:    profiles,
		cache:       c,
		ttl:         ttl,
		now:         now,
		log:         log.Component("leaderboard"),
	}
}

// cacheKey identifies a snapshot. Local boards also key on the location.
func cacheKey(q Query) string {
	limit := "default"
	if q.Limit > 0 {
		limit = strconv.Itoa(q.Limit)
	}
	key := fmt.Sprintf("%s%s:%s:%s:%d", cachePrefix, q.ArtistID, q.Type, limit, q.Offset)
	if q.Type == TypeLocal && q.Location != nil {
		key += ":" + strings.ToLower(q.Location.Country) + "/" + strings.ToLower(q.Location.City)
	}
	return key
}

// normalize applies the type fallback and the pagination bounds.
func normalize(q Query) Query {
	q.Type = ParseType(string(q.Type))
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func pageBounds(limit, offset, n int) (int, int) {
	if limit <= 0 {
		limit = points.DefaultLeaderboardLimit
	}
	if limit > points.MaxLeaderboardLimit {
		limit = points.MaxLeaderboardLimit
	}
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}

// GenerateArtistLeaderboard returns one page of an artist leaderboard. The full
// sorted snapshot is cached and served until its TTL expires, so new engagements
// can take up to one TTL to show up.
func (s *Service) GenerateArtistLeaderboard(ctx context.Context, q Query) ([]Entry, error) {
	q = normalize(q)
	if q.ArtistID == "" {
		return nil, errors.New("artist id is required")
	}

	snapshot, err := s.snapshot(ctx, q)
	if err != nil {
		return nil, err
	}

	start, end := pageBounds(q.Limit, q.Offset, len(snapshot))
	return snapshot[start:end], nil
}

// snapshot returns the full sorted board for q, from cache when possible.
func (s *Service) snapshot(ctx context.Context, q Query) ([]Entry, error) {
	key := cacheKey(q)
	return s.cached(ctx, key, func() ([]Entry, error) {
		return s.build(ctx, q)
	}, string(q.Type))
}

func (s *Service) cached(ctx context.Context, key string, build func() ([]Entry, error), label string) ([]Entry, error) {
	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err == nil {
			metrics.RecordLeaderboardCacheHit()
			return entries, nil
		}
		s.log.Warn().Str("key", key).Msg("Discarding unreadable leaderboard snapshot")
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache lookup failed")
	}
	metrics.RecordLeaderboardCacheMiss()

	start := time.Now()
	entries, err := build()
	if err != nil {
		return nil, err
	}
	metrics.ObserveLeaderboardBuild(label, time.Since(start))

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache leaderboard")
	}
	return entries, nil
}

// build fetches the scores of an artist and applies the type filter.
func (s *Service) build(ctx context.Context, q Query) ([]Entry, error) {
	scores, err := s.scores.GetArtistFanScores(ctx, q.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan scores: %w", err)
	}

	now := s.now()
	values := make(map[string]int64, len(scores))
	for _, fs := range scores {
		values[fs.UserID] = fs.TotalScore
	}

	if window, ok := windows[q.Type]; ok {
		sums, err := s.engagements.SumPointsSince(ctx, q.ArtistID, now.Add(-window).UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to sum window points: %w", err)
		}
		for id := range values {
			values[id] = sums[id]
		}
	}

	if q.Type == TypeNewFans {
		cutoff := now.Add(-newFanWindow)
		for _, fs := range scores {
			if fs.FanSince.Before(cutoff) {
				delete(values, fs.UserID)
			}
		}
	}

	profiles, err := s.profilesFor(ctx, values)
	if err != nil {
		return nil, err
	}

	if q.Type == TypeLocal && q.Location != nil {
		for id := range values {
			p, ok := profiles[id]
			if !ok || !q.Location.matches(p) {
				delete(values, id)
			}
		}
	}

	byUser := indexScores(scores)
	entries := make([]Entry, 0, len(values))
	for id, v := range values {
		if v <= 0 {
			continue
		}
		entries = append(entries, newEntry(id, q.ArtistID, v, profiles, earnedBadges(q.ArtistID, byUser[id])))
	}
	sortEntries(entries)

	switch q.Type {
	case TypeNewFans:
		if len(entries) > points.NewFansLimit {
			entries = entries[:points.NewFansLimit]
		}
	case TypeSuperfans:
		n := int(math.Ceil(float64(len(entries)) * 0.01))
		if n < points.MinSuperfans {
			n = points.MinSuperfans
		}
		if len(entries) > n {
			entries = entries[:n]
		}
	}

	rank(entries)
	return entries, nil
}

func (s *Service) profilesFor(ctx context.Context, values map[string]int64) (map[string]models.FanProfile, error) {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[string]models.FanProfile{}, nil
	}
	profiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	return profiles, nil
}

func indexScores(scores []models.FanScore) map[string]models.FanScore {
	out := make(map[string]models.FanScore, len(scores))
	for _, fs := range scores {
		out[fs.UserID] = fs
	}
	return out
}

// earnedBadges reflects the all-time score and streak, whatever the board type.
func earnedBadges(artistID string, fs models.FanScore) []models.FanBadge {
	return badges.Calculate(artistID, fs.TotalScore, fs.ConsecutiveDays)
}

func newEntry(userID, artistID string, score int64, profiles map[string]models.FanProfile, earned []models.FanBadge) Entry {
	e := Entry{
		UserID:         userID,
		ArtistID:       artistID,
		Username:       models.FallbackUsername(userID),
		ProfilePicture: avatarURL + userID,
		FanScore:       score,
		Badges:         earned,
	}
	if p, ok := profiles[userID]; ok {
		e.Username = p.DisplayName()
		if p.ProfilePicture != "" {
			e.ProfilePicture = p.ProfilePicture
		}
	}
	if e.Badges == nil {
		e.Badges = []models.FanBadge{}
	}
	return e
}

// sortEntries orders by score descending, ties by user id.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].FanScore != entries[j].FanScore {
			return entries[i].FanScore > entries[j].FanScore
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// rank assigns 1-based positions and the position percentile.
func rank(entries []Entry) {
	n := len(entries)
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Percentile = int(math.Round(float64(n-i) / float64(n) * 100))
	}
}

// ClearArtistCache drops every cached board of an artist.
func (s *Service) ClearArtistCache(ctx context.Context, artistID string) (int, error) {
	n, err := s.cache.DeletePrefix(ctx, cachePrefix+artistID+":")
	if err != nil {
		return 0, fmt.Errorf("failed to clear leaderboard cache: %w", err)
	}
	s.log.Debug().Str("artist_id", artistID).Int("keys", n).Msg("Cleared artist leaderboard cache")
	return n, nil
}

// ClearAllCache drops every cached board.
func (s *Service) ClearAllCache(ctx context.Context) (int, error) {
	n, err := s.cache.DeletePrefix(ctx, cachePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to clear leaderboard cache: %w", err)
	}
	return n, nil
}
