package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/service/points"
)

// RankInfo is the position of one fan on an artist leaderboard.
type RankInfo struct {
	UserID           string                   `json:"user_id"`
	ArtistID         string                   `json:"artist_id"`
	CurrentRank      int                      `json:"current_rank"`
	FanScore         int64                    `json:"fan_score"`
	TotalFans        int                      `json:"total_fans"`
	Percentile       int                      `json:"percentile"`
	PointsToNextRank int64                    `json:"points_to_next_rank"`
	RecentActivity   []models.EngagementEvent `json:"recent_activity"`
}

// ArtistRanking is a fan's standing with one of their artists.
type ArtistRanking struct {
	ArtistID  string `json:"artist_id"`
	Rank      int    `json:"rank"`
	TotalFans int    `json:"total_fans"`
	FanScore  int64  `json:"fan_score"`
}

// GetUserRank locates a fan on the full leaderboard of an artist. It returns nil
// when the fan is not on the board.
func (s *Service) GetUserRank(ctx context.Context, userID, artistID string, boardType Type) (*RankInfo, error) {
	q := normalize(Query{ArtistID: artistID, Type: boardType})
	board, err := s.snapshot(ctx, q)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range board {
		if board[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	entry := board[idx]
	info := &RankInfo{
		UserID:      userID,
		ArtistID:    artistID,
		CurrentRank: entry.Rank,
		FanScore:    entry.FanScore,
		TotalFans:   len(board),
		Percentile:  entry.Percentile,
	}
	if idx > 0 {
		info.PointsToNextRank = board[idx-1].FanScore - entry.FanScore
	}

	recent, err := s.engagements.GetRecentEngagements(ctx, userID, artistID, recentActivitySize)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("artist_id", artistID).Msg("Failed to get recent activity")
		recent = nil
	}
	if recent == nil {
		recent = []models.EngagementEvent{}
	}
	info.RecentActivity = recent

	return info, nil
}

// GetMultiArtistRankings returns the all-time standing of a fan with every artist
// they have a score for, best rank first.
func (s *Service) GetMultiArtistRankings(ctx context.Context, userID string) ([]ArtistRanking, error) {
	scores, err := s.scores.GetUserFanScores(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user fan scores: %w", err)
	}

	rankings := make([]ArtistRanking, 0, len(scores))
	for _, fs := range scores {
		info, err := s.GetUserRank(ctx, userID, fs.ArtistID, TypeAllTime)
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}
		rankings = append(rankings, ArtistRanking{
			ArtistID:  fs.ArtistID,
			Rank:      info.CurrentRank,
			TotalFans: info.TotalFans,
			FanScore:  fs.TotalScore,
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Rank < rankings[j].Rank
	})
	return rankings, nil
}

// GetTrendingFans returns the fans who earned the most points over the last days.
func (s *Service) GetTrendingFans(ctx context.Context, artistID string, days int) ([]Entry, error) {
	if days <= 0 {
		days = 7
	}
	key := fmt.Sprintf("%s%s:trending:%d", cachePrefix, artistID, days)

	return s.cached(ctx, key, func() ([]Entry, error) {
		since := s.now().Add(-time.Duration(days) * 24 * time.Hour).UTC()
		sums, err := s.engagements.SumPointsSince(ctx, artistID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to sum trending points: %w", err)
		}

		values := make(map[string]int64, len(sums))
		for id, v := range sums {
			if v > 0 {
				values[id] = v
			}
		}
		profiles, err := s.profilesFor(ctx, values)
		if err != nil {
			return nil, err
		}
		scores, err := s.scores.GetArtistFanScores(ctx, artistID)
		if err != nil {
			return nil, fmt.Errorf("failed to get fan scores: %w", err)
		}
		byUser := indexScores(scores)

		entries := make([]Entry, 0, len(values))
		for id, v := range values {
			entries = append(entries, newEntry(id, artistID, v, profiles, earnedBadges(artistID, byUser[id])))
		}
		sortEntries(entries)
		if len(entries) > points.TrendingLimit {
			entries = entries[:points.TrendingLimit]
		}
		rank(entries)
		return entries, nil
	}, "trending")
}
