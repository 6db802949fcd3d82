package challenges

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aimd54/fanscore/internal/models"
)

func TestValidateAction(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		typ    models.ChallengeType
		params ActionParams
		want   bool
	}{
		{"full listen", models.ChallengeListenSong, ActionParams{ListenedMs: 170000, TotalDurationMs: 200000, Skips: 1, SimultaneousStreams: 1}, true},
		{"partial listen", models.ChallengeListenSong, ActionParams{ListenedMs: 100000, TotalDurationMs: 200000}, false},
		{"too many skips", models.ChallengeListenSong, ActionParams{ListenedMs: 200000, TotalDurationMs: 200000, Skips: 4}, false},
		{"too many streams", models.ChallengeListenSong, ActionParams{ListenedMs: 200000, TotalDurationMs: 200000, SimultaneousStreams: 3}, false},

		{"first share", models.ChallengeShareContent, ActionParams{ContentID: "s1"}, true},
		{"share too soon", models.ChallengeShareContent, ActionParams{ContentID: "s2", LastShareAt: now.Add(-10 * time.Minute)}, false},
		{"share repeated content", models.ChallengeShareContent, ActionParams{ContentID: "s1", SharedContentIDs: []string{"s1"}, LastShareAt: now.Add(-time.Hour)}, false},
		{"share later", models.ChallengeShareContent, ActionParams{ContentID: "s2", SharedContentIDs: []string{"s1"}, LastShareAt: now.Add(-31 * time.Minute)}, true},

		{"playlist ok", models.ChallengeCreatePlaylist, ActionParams{SongCount: 12, Description: "road trip"}, true},
		{"playlist too small", models.ChallengeCreatePlaylist, ActionParams{SongCount: 4, Description: "x"}, false},
		{"playlist too big", models.ChallengeCreatePlaylist, ActionParams{SongCount: 51, Description: "x"}, false},
		{"playlist blank description", models.ChallengeCreatePlaylist, ActionParams{SongCount: 10, Description: "   "}, false},

		{"good comment", models.ChallengeEngageCommunity, ActionParams{CommentLength: 24, CommentsInLastHour: 2}, true},
		{"short comment", models.ChallengeEngageCommunity, ActionParams{CommentLength: 5}, false},
		{"comment flood", models.ChallengeEngageCommunity, ActionParams{CommentLength: 24, CommentsInLastHour: 11}, false},
		{"like too soon", models.ChallengeEngageCommunity, ActionParams{CommentLength: 24, LastLikeAt: now.Add(-time.Minute)}, false},

		{"no rules", models.ChallengeType("DANCE"), ActionParams{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateAction(tt.typ, tt.params, now))
		})
	}
}
