package scoring

import (
	"context"

	"github.com/aimd54/fanscore/internal/models"
)

// TrackSongPlay scores a play of durationSec seconds.
func (s *Service) TrackSongPlay(ctx context.Context, userID, artistID, songID string, durationSec float64) (Result, error) {
	return s.TrackEngagement(ctx, Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     models.KindSongPlay,
		Metadata: models.EngagementMetadata{SongID: songID, Duration: &durationSec},
	})
}

// TrackSongComplete scores a song played to the end.
func (s *Service) TrackSongComplete(ctx context.Context, userID, artistID, songID string, completionRate float64) (Result, error) {
	return s.TrackEngagement(ctx, Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     models.KindSongComplete,
		Metadata: models.EngagementMetadata{SongID: songID, CompletionRate: &completionRate},
	})
}

// TrackArtistFollow scores a follow.
func (s *Service) TrackArtistFollow(ctx context.Context, userID, artistID string) (Result, error) {
	return s.TrackEngagement(ctx, Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     models.KindArtistFollow,
	})
}

// TrackPurchase scores a purchase. kind must be one of the purchase kinds.
func (s *Service) TrackPurchase(ctx context.Context, userID, artistID string, kind models.EngagementKind, itemID string, amount float64) (Result, error) {
	meta := models.EngagementMetadata{PurchaseAmount: &amount}
	switch kind {
	case models.KindAlbumPurchase:
		meta.AlbumID = itemID
	case models.KindSongPurchase:
		meta.SongID = itemID
	default:
		meta.EventID = itemID
	}
	return s.TrackEngagement(ctx, Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     kind,
		Metadata: meta,
	})
}

// TrackVideoView scores a video view.
func (s *Service) TrackVideoView(ctx context.Context, userID, artistID, videoID string, durationSec float64) (Result, error) {
	return s.TrackEngagement(ctx, Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     models.KindVideoView,
		Metadata: models.EngagementMetadata{VideoID: videoID, Duration: &durationSec},
	})
}

// TrackConcertAttendance scores a checked-in concert.
func (s *Service) TrackConcertAttendance(ctx context.Context, userID, artistID, eventID string) (Result, error) {
	return s.TrackEngagement(ctx, Engagement{
		UserID:   userID,
		ArtistID: artistID,
		Kind:     models.KindConcertAttend,
		Metadata: models.EngagementMetadata{EventID: eventID},
	})
}
