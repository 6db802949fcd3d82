package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

// EngagementStore is an in-memory event log, fan score table and profile table.
// The *Err fields make the matching operation fail.
type EngagementStore struct {
	mu       sync.Mutex
	events   []models.EngagementEvent
	scores   map[string]models.FanScore
	profiles map[string]models.FanProfile

	SaveEngagementErr error
	SaveFanScoreErr   error
	GetFanScoresErr   error

	SaveEngagementCalls int
	ArtistScoreReads    int
}

// NewEngagementStore creates an empty store.
func NewEngagementStore() *EngagementStore {
	return &EngagementStore{
		scores:   make(map[string]models.FanScore),
		profiles: make(map[string]models.FanProfile),
	}
}

func pairKey(userID, artistID string) string {
	return userID + "|" + artistID
}

func (m *EngagementStore) SaveEngagement(_ context.Context, event *models.EngagementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveEngagementCalls++
	if m.SaveEngagementErr != nil {
		return m.SaveEngagementErr
	}
	m.events = append(m.events, *event)
	return nil
}

// newestFirst returns the events of a pair sorted by time descending.
func (m *EngagementStore) newestFirst(userID, artistID string) []models.EngagementEvent {
	var out []models.EngagementEvent
	for _, e := range m.events {
		if e.UserID == userID && e.ArtistID == artistID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out
}

func (m *EngagementStore) GetEngagementsByArtist(_ context.Context, userID, artistID string) ([]models.EngagementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(userID, artistID), nil
}

func (m *EngagementStore) GetRecentEngagements(_ context.Context, userID, artistID string, limit int) ([]models.EngagementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.newestFirst(userID, artistID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *EngagementStore) GetDailyEngagementCount(_ context.Context, userID, artistID string, kind models.EngagementKind, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var n int64
	for _, e := range m.events {
		if e.UserID == userID && e.ArtistID == artistID && e.Kind == kind &&
			!e.OccurredAt.Before(start) && e.OccurredAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (m *EngagementStore) ExistsByIdempotencyKey(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.events {
		if e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *EngagementStore) SumPointsSince(_ context.Context, artistID string, since time.Time) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sums := make(map[string]int64)
	for _, e := range m.events {
		if e.ArtistID == artistID && !e.OccurredAt.Before(since) {
			sums[e.UserID] += int64(e.Points)
		}
	}
	return sums, nil
}

// AddEvent appends an event without any validation.
func (m *EngagementStore) AddEvent(e models.EngagementEvent) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

// Events returns a copy of every stored event.
func (m *EngagementStore) Events() []models.EngagementEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.EngagementEvent(nil), m.events...)
}

func (m *EngagementStore) SaveFanScore(_ context.Context, score *models.FanScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveFanScoreErr != nil {
		return m.SaveFanScoreErr
	}
	m.scores[pairKey(score.UserID, score.ArtistID)] = *score
	return nil
}

func (m *EngagementStore) GetFanScore(_ context.Context, userID, artistID string) (*models.FanScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetFanScoresErr != nil {
		return nil, m.GetFanScoresErr
	}
	s, ok := m.scores[pairKey(userID, artistID)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *EngagementStore) GetUserFanScores(_ context.Context, userID string) ([]models.FanScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetFanScoresErr != nil {
		return nil, m.GetFanScoresErr
	}
	var out []models.FanScore
	for _, s := range m.scores {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].ArtistID < out[j].ArtistID
	})
	return out, nil
}

func (m *EngagementStore) GetArtistFanScores(_ context.Context, artistID string) ([]models.FanScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ArtistScoreReads++
	if m.GetFanScoresErr != nil {
		return nil, m.GetFanScoresErr
	}
	var out []models.FanScore
	for _, s := range m.scores {
		if s.ArtistID == artistID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *EngagementStore) ListArtistIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, s := range m.scores {
		if _, ok := seen[s.ArtistID]; !ok {
			seen[s.ArtistID] = struct{}{}
			ids = append(ids, s.ArtistID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PutScore stores a fan score directly.
func (m *EngagementStore) PutScore(s models.FanScore) {
	m.mu.Lock()
	m.scores[pairKey(s.UserID, s.ArtistID)] = s
	m.mu.Unlock()
}

// PutProfile stores a profile.
func (m *EngagementStore) PutProfile(p models.FanProfile) {
	m.mu.Lock()
	m.profiles[p.UserID] = p
	m.mu.Unlock()
}

func (m *EngagementStore) GetProfiles(_ context.Context, userIDs []string) (map[string]models.FanProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.FanProfile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
