// Package scheduler runs the periodic maintenance and digest jobs.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aimd54/fanscore/internal/config"
	"github.com/aimd54/fanscore/internal/mattermost"
	prommetrics "github.com/aimd54/fanscore/internal/metrics"
	"github.com/aimd54/fanscore/internal/service/aggregator"
	"github.com/aimd54/fanscore/internal/service/leaderboard"
	"github.com/aimd54/fanscore/pkg/logger"
)

// Job names, used as metric labels.
const (
	JobChallengeExpiry = "challenge_expiry"
	JobWindowPrune     = "window_prune"
	JobTopFansDigest   = "top_fans_digest"
	JobScoreRefresh    = "score_refresh"
)

// ChallengeExpirer expires challenge progress past its deadline.
type ChallengeExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// WindowPruner drops idle anti-gaming window entries.
type WindowPruner interface {
	PruneWindow() int
}

// SessionPruner drops abandoned listening sessions.
type SessionPruner interface {
	Prune(maxAge time.Duration) int
}

// ArtistLister lists the artists that have fans.
type ArtistLister interface {
	ListArtistIDs(ctx context.Context) ([]string, error)
}

// LeaderboardReader reads artist leaderboards.
type LeaderboardReader interface {
	GenerateArtistLeaderboard(ctx context.Context, q leaderboard.Query) ([]leaderboard.Entry, error)
}

// DigestSender posts the top fans digest.
type DigestSender interface {
	SendTopFansDigest(ctx context.Context, artistID string, fans []mattermost.TopFan) error
}

// ScoreRefresher rebuilds stored fan scores.
type ScoreRefresher interface {
	RefreshAll(ctx context.Context) (*aggregator.Summary, error)
}

// Dependencies groups what the jobs act on. Nil members disable their job.
type Dependencies struct {
	Challenges    ChallengeExpirer
	Window        WindowPruner
	Sessions      SessionPruner
	SessionMaxAge time.Duration
	Artists       ArtistLister
	Leaderboards  LeaderboardReader
	Digest        DigestSender
	Scores        ScoreRefresher
}

// Service handles background job scheduling.
type Service struct {
	config *config.SchedulerConfig
	deps   Dependencies
	log    *logger.Logger
	cron   *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.SchedulerConfig, deps Dependencies, log *logger.Logger) *Service {
	return &Service{
		config: cfg,
		deps:   deps,
		log:    log,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if s.deps.Challenges != nil && s.config.ChallengeExpirySchedule != "" {
		if err := s.register(JobChallengeExpiry, s.config.ChallengeExpirySchedule, s.runChallengeExpiry); err != nil {
			return err
		}
	}

	if (s.deps.Window != nil || s.deps.Sessions != nil) && s.config.WindowPruneSchedule != "" {
		if err := s.register(JobWindowPrune, s.config.WindowPruneSchedule, s.runWindowPrune); err != nil {
			return err
		}
	}

	if s.deps.Scores != nil && s.config.ScoreRefreshSchedule != "" {
		if err := s.register(JobScoreRefresh, s.config.ScoreRefreshSchedule, s.runScoreRefresh); err != nil {
			return err
		}
	}

	if s.deps.Artists != nil && s.deps.Leaderboards != nil && s.deps.Digest != nil && s.config.DigestTime != "" {
		cronExpr, err := s.buildCronExpression()
		if err != nil {
			return fmt.Errorf("failed to build cron expression: %w", err)
		}
		if err := s.register(JobTopFansDigest, cronExpr, s.runTopFansDigest); err != nil {
			return err
		}
	}

	s.cron.Start()

	nextRun := ""
	if entries := s.cron.Entries(); len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Int("jobs", len(s.cron.Entries())).
		Str("timezone", s.config.Timezone).
		Str("digest_time", s.config.DigestTime).
		Bool("skip_weekends", s.config.SkipWeekends).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

func (s *Service) register(name, schedule string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(context.Background(), name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to register %s job: %w", name, err)
	}
	s.log.Info().
		Str("job", name).
		Str("schedule", schedule).
		Msg("Job registered")
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates the digest cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.DigestTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.DigestTime)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	if s.config.SkipWeekends {
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// run executes one job and records its outcome.
func (s *Service) run(ctx context.Context, name string, job func(context.Context) error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(name, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(name)
	}()

	if err := job(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(start)).
			Msg("Scheduled job failed")
		prommetrics.RecordSchedulerJobRun(name, "error")
		return
	}
	prommetrics.RecordSchedulerJobRun(name, "success")
}

func (s *Service) runChallengeExpiry(ctx context.Context) error {
	n, err := s.deps.Challenges.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire challenges: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("Expired stale challenge progress")
	}
	return nil
}

func (s *Service) runWindowPrune(_ context.Context) error {
	keys, sessions := 0, 0
	if s.deps.Window != nil {
		keys = s.deps.Window.PruneWindow()
	}
	if s.deps.Sessions != nil && s.deps.SessionMaxAge > 0 {
		sessions = s.deps.Sessions.Prune(s.deps.SessionMaxAge)
	}
	s.log.Debug().
		Int("window_keys", keys).
		Int("sessions_dropped", sessions).
		Msg("Pruned in-memory trackers")
	return nil
}

func (s *Service) runScoreRefresh(ctx context.Context) error {
	sum, err := s.deps.Scores.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh fan scores: %w", err)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("refresh failed for %d fan scores", sum.Failed)
	}
	return nil
}

// runTopFansDigest posts the all-time top fans of every artist. Failures on one
// artist do not stop the others; the job fails if any artist failed.
func (s *Service) runTopFansDigest(ctx context.Context) error {
	artists, err := s.deps.Artists.ListArtistIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list artists: %w", err)
	}

	topN := s.config.DigestTopN
	if topN <= 0 {
		topN = 5
	}

	failed := 0
	for _, artistID := range artists {
		entries, err := s.deps.Leaderboards.GenerateArtistLeaderboard(ctx, leaderboard.Query{
			ArtistID: artistID,
			Type:     leaderboard.TypeAllTime,
			Limit:    topN,
		})
		if err != nil {
			s.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to build digest leaderboard")
			failed++
			continue
		}
		if err := s.deps.Digest.SendTopFansDigest(ctx, artistID, buildTopFans(entries)); err != nil {
			s.log.Error().Err(err).Str("artist_id", artistID).Msg("Failed to send top fans digest")
			failed++
		}
	}

	s.log.Info().
		Int("artists", len(artists)).
		Int("failed", failed).
		Msg("Top fans digest finished")

	if failed > 0 {
		return fmt.Errorf("digest failed for %d of %d artists", failed, len(artists))
	}
	return nil
}
