package scheduler

import (
	"github.com/aimd54/fanscore/internal/mattermost"
	"github.com/aimd54/fanscore/internal/service/leaderboard"
)

// buildTopFans transforms leaderboard entries into digest lines.
func buildTopFans(entries []leaderboard.Entry) []mattermost.TopFan {
	fans := make([]mattermost.TopFan, 0, len(entries))
	for _, e := range entries {
		var badges []string
		for _, b := range e.Badges {
			badges = append(badges, b.Name)
		}
		fans = append(fans, mattermost.TopFan{
			Rank:     e.Rank,
			Username: e.Username,
			FanScore: e.FanScore,
			Badges:   badges,
		})
	}
	return fans
}
