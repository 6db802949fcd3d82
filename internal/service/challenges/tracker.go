package challenges

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/pkg/logger"
)

const (
	// plays below this completion are not counted at all
	minPlayCompletion = 50.0
	// plays at or above this completion count extra
	fullPlayCompletion = 80.0
	fullPlayValue      = 1.5
	summaryWindow      = 30 * 24 * time.Hour
)

// ErrInvalidAction is returned for actions the tracker cannot process.
var ErrInvalidAction = errors.New("invalid action")

// categories advanced by each action type
var actionCategories = map[models.ActionType][]models.ChallengeCategory{
	models.ActionSongPlay:    {models.CategoryListening},
	models.ActionVideoPlay:   {models.CategoryListening},
	models.ActionShare:       {models.CategorySocial},
	models.ActionComment:     {models.CategorySocial},
	models.ActionLike:        {models.CategoryEngagement, models.CategorySocial},
	models.ActionPlaylistAdd: {models.CategoryCreative, models.CategoryEngagement},
}

// ActionRepository interface for raw action storage.
type ActionRepository interface {
	SaveAction(ctx context.Context, action *models.EngagementAction) error
	CountActionsSince(ctx context.Context, userID string, since time.Time) (map[models.ActionType]int64, error)
	CountDistinctSongs(ctx context.Context, userID, artistID string, since time.Time) (int64, error)
}

// Action is one raw fan action fed to the tracker.
type Action struct {
	Type              models.ActionType `json:"type"`
	UserID            string            `json:"user_id"`
	TargetID          string            `json:"target_id"`
	ArtistID          string            `json:"artist_id,omitempty"`
	Duration          float64           `json:"duration,omitempty"`
	CompletionPercent float64           `json:"completion_percent,omitempty"`
	Platform          string            `json:"platform,omitempty"`
}

// EngagementSummary counts the actions of a user over the last 30 days.
type EngagementSummary struct {
	TotalActions int64 `json:"total_actions"`
	SongPlays    int64 `json:"song_plays"`
	VideoPlays   int64 `json:"video_plays"`
	Likes        int64 `json:"likes"`
	Shares       int64 `json:"shares"`
	Comments     int64 `json:"comments"`
	PlaylistAdds int64 `json:"playlist_adds"`
}

// Tracker maps raw actions onto the active challenges they advance.
type Tracker struct {
	svc     *Service
	actions ActionRepository
	now     func() time.Time
	log     *logger.Logger
}

// NewTracker creates a tracker backed by the action repository.
func NewTracker(svc *Service, actionRepo *repository.ActionRepository, log *logger.Logger) *Tracker {
	return NewTrackerWithInterfaces(svc, actionRepo, time.Now, log)
}

// NewTrackerWithInterfaces creates a tracker with interface dependencies (useful for testing).
func NewTrackerWithInterfaces(svc *Service, actions ActionRepository, now func() time.Time, log *logger.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		svc:     svc,
		actions: actions,
		now:     now,
		log:     log.Component("tracker"),
	}
}

// IsValidAction reports whether t is a tracked action type.
func IsValidAction(t models.ActionType) bool {
	_, ok := actionCategories[t]
	return ok
}

func matchesCategory(t models.ActionType, c models.ChallengeCategory) bool {
	for _, cat := range actionCategories[t] {
		if cat == c {
			return true
		}
	}
	return false
}

// actionValue is the progress increment of an action.
func actionValue(a Action) float64 {
	switch a.Type {
	case models.ActionSongPlay, models.ActionVideoPlay:
		if a.CompletionPercent >= fullPlayCompletion {
			return fullPlayValue
		}
	}
	return 1
}

// Track stores an action and advances every matching active challenge of its user.
// Plays under half completion are ignored. It returns the progress rows it updated.
func (t *Tracker) Track(ctx context.Context, a Action) ([]models.ChallengeProgress, error) {
	if a.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidAction)
	}
	if !IsValidAction(a.Type) {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}
	if (a.Type == models.ActionSongPlay || a.Type == models.ActionVideoPlay) && a.CompletionPercent < minPlayCompletion {
		t.log.Debug().
			Str("user_id", a.UserID).
			Str("target_id", a.TargetID).
			Float64("completion", a.CompletionPercent).
			Msg("Play too short to count for challenges")
		return nil, nil
	}

	meta, err := actionMetadata(a)
	if err != nil {
		return nil, err
	}
	value := actionValue(a)

	stored := &models.EngagementAction{
		UserID:     a.UserID,
		ActionType: a.Type,
		TargetID:   a.TargetID,
		ArtistID:   a.ArtistID,
		Value:      value,
		Metadata:   meta,
		CreatedAt:  t.now().UTC(),
	}
	if err := t.actions.SaveAction(ctx, stored); err != nil {
		return nil, err
	}

	active, err := t.svc.ListActive(ctx, a.UserID)
	if err != nil {
		return nil, err
	}

	var updated []models.ChallengeProgress
	for i := range active {
		p := &active[i]
		c := p.Challenge
		if c == nil || !matchesCategory(a.Type, c.Category) || !c.Scope.Matches(a.ArtistID) {
			continue
		}

		var next *models.ChallengeProgress
		if c.Metric == models.MetricUniqueSongs {
			if a.Type != models.ActionSongPlay {
				continue
			}
			next, err = t.applyUniqueSongs(ctx, p, meta)
		} else {
			next, err = t.svc.apply(ctx, p, string(a.Type), value, false, meta)
		}
		if err != nil {
			t.log.Error().Err(err).
				Str("user_id", a.UserID).
				Str("challenge_id", p.ChallengeID).
				Msg("Failed to update challenge progress")
			continue
		}
		updated = append(updated, *next)
	}

	t.log.Debug().
		Str("user_id", a.UserID).
		Str("action", string(a.Type)).
		Int("challenges_updated", len(updated)).
		Msg("Action tracked")

	return updated, nil
}

// applyUniqueSongs sets the counter to the distinct songs played since the start.
func (t *Tracker) applyUniqueSongs(ctx context.Context, p *models.ChallengeProgress, meta datatypes.JSON) (*models.ChallengeProgress, error) {
	artistID := ""
	if p.Challenge.Scope.Kind == models.ScopeArtist {
		artistID = p.Challenge.Scope.ArtistID
	}
	n, err := t.actions.CountDistinctSongs(ctx, p.UserID, artistID, p.StartedAt)
	if err != nil {
		return nil, err
	}
	if float64(n) == p.CurrentValue {
		return p, nil
	}
	return t.svc.apply(ctx, p, string(models.ActionSongPlay), float64(n), true, meta)
}

func actionMetadata(a Action) (datatypes.JSON, error) {
	m := map[string]interface{}{}
	if a.Duration > 0 {
		m["duration"] = a.Duration
	}
	if a.CompletionPercent > 0 {
		m["completion_percent"] = a.CompletionPercent
	}
	if a.Platform != "" {
		m["platform"] = a.Platform
	}
	if a.ArtistID != "" {
		m["artist_id"] = a.ArtistID
	}
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action metadata: %w", err)
	}
	return datatypes.JSON(data), nil
}

// TrackSongPlay tracks a song play.
func (t *Tracker) TrackSongPlay(ctx context.Context, userID, songID, artistID string, duration, completionPercent float64) ([]models.ChallengeProgress, error) {
	return t.Track(ctx, Action{Type: models.ActionSongPlay, UserID: userID, TargetID: songID, ArtistID: artistID, Duration: duration, CompletionPercent: completionPercent})
}

// TrackVideoPlay tracks a video play.
func (t *Tracker) TrackVideoPlay(ctx context.Context, userID, videoID, artistID string, duration, completionPercent float64) ([]models.ChallengeProgress, error) {
	return t.Track(ctx, Action{Type: models.ActionVideoPlay, UserID: userID, TargetID: videoID, ArtistID: artistID, Duration: duration, CompletionPercent: completionPercent})
}

// TrackLike tracks a like.
func (t *Tracker) TrackLike(ctx context.Context, userID, targetID, artistID string) ([]models.ChallengeProgress, error) {
	return t.Track(ctx, Action{Type: models.ActionLike, UserID: userID, TargetID: targetID, ArtistID: artistID})
}

// TrackShare tracks a share to an external platform.
func (t *Tracker) TrackShare(ctx context.Context, userID, targetID, platform, artistID string) ([]models.ChallengeProgress, error) {
	return t.Track(ctx, Action{Type: models.ActionShare, UserID: userID, TargetID: targetID, ArtistID: artistID, Platform: platform})
}

// TrackComment tracks a comment.
func (t *Tracker) TrackComment(ctx context.Context, userID, targetID, artistID string) ([]models.ChallengeProgress, error) {
	return t.Track(ctx, Action{Type: models.ActionComment, UserID: userID, TargetID: targetID, ArtistID: artistID})
}

// TrackPlaylistAdd tracks a song added to a playlist.
func (t *Tracker) TrackPlaylistAdd(ctx context.Context, userID, playlistID, artistID string) ([]models.ChallengeProgress, error) {
	return t.Track(ctx, Action{Type: models.ActionPlaylistAdd, UserID: userID, TargetID: playlistID, ArtistID: artistID})
}

// GetEngagementSummary counts the actions of a user over the last 30 days.
func (t *Tracker) GetEngagementSummary(ctx context.Context, userID string) (*EngagementSummary, error) {
	counts, err := t.actions.CountActionsSince(ctx, userID, t.now().UTC().Add(-summaryWindow))
	if err != nil {
		return nil, err
	}

	summary := &EngagementSummary{
		SongPlays:    counts[models.ActionSongPlay],
		VideoPlays:   counts[models.ActionVideoPlay],
		Likes:        counts[models.ActionLike],
		Shares:       counts[models.ActionShare],
		Comments:     counts[models.ActionComment],
		PlaylistAdds: counts[models.ActionPlaylistAdd],
	}
	for _, n := range counts {
		summary.TotalActions += n
	}
	return summary, nil
}
