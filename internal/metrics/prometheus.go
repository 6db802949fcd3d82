// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons for dropped engagements.
const (
	ReasonUnknownKind  = "unknown_kind"
	ReasonInvalidInput = "invalid_input"
	ReasonShortPlay    = "short_play"
	ReasonRateLimited  = "rate_limited"
	ReasonDailyCap     = "daily_cap"
	ReasonDuplicate    = "duplicate"
)

// Prometheus metrics for the fan scoring service.
var (
	// Scoring.
	EngagementsTrackedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_engagements_tracked_total",
			Help: "Total number of engagements accepted and persisted",
		},
		[]string{"kind"},
	)

	EngagementsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_engagements_rejected_total",
			Help: "Total number of engagements dropped by validation",
		},
		[]string{"reason"},
	)

	FanPointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_points_awarded_total",
			Help: "Total fan score points awarded",
		},
		[]string{"category"},
	)

	ScoreRecomputeDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fanscore_recompute_duration_seconds",
			Help:    "Time spent rebuilding a fan score from its event log",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	ActionWindowKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanscore_action_window_keys",
			Help: "Number of (user, kind) pairs tracked by the rapid action window",
		},
	)

	// Leaderboards.
	LeaderboardCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_leaderboard_cache_lookups_total",
			Help: "Leaderboard snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	LeaderboardBuildDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanscore_leaderboard_build_duration_seconds",
			Help:    "Time spent building a leaderboard snapshot on cache miss",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"type"},
	)

	// Challenges.
	ChallengeActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_challenge_actions_total",
			Help: "Total number of actions applied to challenge progress",
		},
		[]string{"category"},
	)

	ChallengeCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_challenge_completions_total",
			Help: "Total number of completed challenges",
		},
		[]string{"category"},
	)

	ChallengesExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanscore_challenges_expired_total",
			Help: "Total number of challenge progress rows moved to expired",
		},
	)

	WalletPointsCreditedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanscore_wallet_points_credited_total",
			Help: "Total reward points credited to wallets",
		},
	)

	// Scheduler.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_scheduler_jobs_run_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fanscore_scheduler_last_run_timestamp",
			Help: "Unix timestamp of the last scheduled job run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanscore_scheduler_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// Notifications.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_notifications_sent_total",
			Help: "Total number of Mattermost notifications sent",
		},
		[]string{"type"},
	)

	NotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanscore_notifications_failed_total",
			Help: "Total number of Mattermost notifications that failed",
		},
		[]string{"type"},
	)

	// HTTP.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanscore_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordEngagementTracked records an accepted engagement.
func RecordEngagementTracked(kind string) {
	EngagementsTrackedTotal.WithLabelValues(kind).Inc()
}

// RecordEngagementRejected records a dropped engagement.
func RecordEngagementRejected(reason string) {
	EngagementsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordPointsAwarded adds awarded points to a category.
func RecordPointsAwarded(category string, points int) {
	if points > 0 {
		FanPointsAwardedTotal.WithLabelValues(category).Add(float64(points))
	}
}

// ObserveScoreRecompute records a recomputation duration.
func ObserveScoreRecompute(d time.Duration) {
	ScoreRecomputeDurationSeconds.Observe(d.Seconds())
}

// SetActionWindowKeys sets the tracked pair count.
func SetActionWindowKeys(n int) {
	ActionWindowKeys.Set(float64(n))
}

// RecordLeaderboardCacheHit records a snapshot cache hit.
func RecordLeaderboardCacheHit() {
	LeaderboardCacheLookupsTotal.WithLabelValues("hit").Inc()
}

// RecordLeaderboardCacheMiss records a snapshot cache miss.
func RecordLeaderboardCacheMiss() {
	LeaderboardCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveLeaderboardBuild records a snapshot build duration.
func ObserveLeaderboardBuild(boardType string, d time.Duration) {
	LeaderboardBuildDurationSeconds.WithLabelValues(boardType).Observe(d.Seconds())
}

// RecordChallengeAction records an action applied to challenge progress.
func RecordChallengeAction(category string) {
	ChallengeActionsTotal.WithLabelValues(category).Inc()
}

// RecordChallengeCompleted records a challenge completion.
func RecordChallengeCompleted(category string) {
	ChallengeCompletionsTotal.WithLabelValues(category).Inc()
}

// RecordChallengesExpired adds expired progress rows.
func RecordChallengesExpired(n int64) {
	if n > 0 {
		ChallengesExpiredTotal.Add(float64(n))
	}
}

// RecordWalletCredit adds credited reward points.
func RecordWalletCredit(points int64) {
	if points > 0 {
		WalletPointsCreditedTotal.Add(float64(points))
	}
}

// RecordSchedulerJobRun records a scheduled job run.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// SetSchedulerLastRun sets the last run timestamp of a job to now.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration records a job duration.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordNotificationSent records a delivered notification.
func RecordNotificationSent(kind string) {
	NotificationsSentTotal.WithLabelValues(kind).Inc()
}

// RecordNotificationFailed records a failed notification.
func RecordNotificationFailed(kind string) {
	NotificationsFailedTotal.WithLabelValues(kind).Inc()
}

// ObserveHTTPRequest records a served HTTP request.
func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestDurationSeconds.WithLabelValues(method, route, status).Observe(d.Seconds())
}
