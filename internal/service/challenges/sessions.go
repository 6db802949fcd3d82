package challenges

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or foreign listening sessions.
var ErrSessionNotFound = errors.New("listening session not found")

// Song is the playback data a listening session needs.
type Song struct {
	ID         string `json:"song_id"`
	ArtistID   string `json:"artist_id"`
	DurationMs int64  `json:"duration_ms"`
}

type session struct {
	userID     string
	song       Song
	startedAt  time.Time
	completion float64
}

// Sessions follows songs while they play and reports the finished ones to the
// tracker. Sessions live in memory only.
type Sessions struct {
	mu       sync.Mutex
	tracker  *Tracker
	now      func() time.Time
	sessions map[string]*session
}

// NewSessions creates an empty session registry.
func NewSessions(tracker *Tracker, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{
		tracker:  tracker,
		now:      now,
		sessions: make(map[string]*session),
	}
}

// StartSongPlay opens a session and returns its id.
func (s *Sessions) StartSongPlay(userID string, song Song) (string, error) {
	if userID == "" || song.ID == "" || song.ArtistID == "" {
		return "", ErrInvalidAction
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{userID: userID, song: song, startedAt: s.now()}
	s.mu.Unlock()
	return id, nil
}

func completionOf(positionMs, durationMs int64) float64 {
	if durationMs <= 0 || positionMs <= 0 {
		return 0
	}
	return float64(positionMs) / float64(durationMs) * 100
}

// UpdateSongProgress records the playback position of a session.
func (s *Sessions) UpdateSongProgress(userID, sessionID string, positionMs int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.userID != userID {
		return 0, ErrSessionNotFound
	}
	sess.completion = completionOf(positionMs, sess.song.DurationMs)
	return sess.completion, nil
}

// CompleteSongPlay closes a session. The play counts toward challenges only when
// at least 80% of the song was heard; counted reports whether it did.
// A zero finalPositionMs keeps the last reported progress.
func (s *Sessions) CompleteSongPlay(ctx context.Context, userID, sessionID string, finalPositionMs int64) (bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok && sess.userID == userID {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok || sess.userID != userID {
		return false, ErrSessionNotFound
	}

	completion := sess.completion
	if finalPositionMs > 0 && sess.song.DurationMs > 0 {
		completion = completionOf(finalPositionMs, sess.song.DurationMs)
	}
	if completion < fullPlayCompletion {
		return false, nil
	}

	duration := float64(sess.song.DurationMs) / 1000 * completion / 100
	if _, err := s.tracker.TrackSongPlay(ctx, userID, sess.song.ID, sess.song.ArtistID, duration, completion); err != nil {
		return false, err
	}
	return true, nil
}

// Prune drops sessions opened longer than maxAge ago and returns how many were dropped.
func (s *Sessions) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	n := 0
	for id, sess := range s.sessions {
		if sess.startedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
