// Command server runs the fan scoring API, its metrics endpoint and background jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	challengesapi "github.com/aimd54/fanscore/internal/api/challenges"
	"github.com/aimd54/fanscore/internal/api/dashboard"
	"github.com/aimd54/fanscore/internal/api/fans"
	"github.com/aimd54/fanscore/internal/api/middleware"
	"github.com/aimd54/fanscore/internal/cache"
	"github.com/aimd54/fanscore/internal/config"
	"github.com/aimd54/fanscore/internal/mattermost"
	"github.com/aimd54/fanscore/internal/repository"
	"github.com/aimd54/fanscore/internal/service/aggregator"
	"github.com/aimd54/fanscore/internal/service/challenges"
	"github.com/aimd54/fanscore/internal/service/leaderboard"
	"github.com/aimd54/fanscore/internal/service/metrics"
	"github.com/aimd54/fanscore/internal/service/scheduler"
	"github.com/aimd54/fanscore/internal/service/scoring"
	"github.com/aimd54/fanscore/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fanscore: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := repository.Open(&cfg.Database, log.Component("database"))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Driver == config.DatabaseDriverSQLite || cfg.Database.Postgres.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	} else if err := repository.RunMigrations(db, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	loc, err := cfg.Scoring.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid scoring timezone: %w", err)
	}

	engagementRepo := repository.NewEngagementRepository(db)
	scoreRepo := repository.NewFanScoreRepository(db)
	notifier := mattermost.NewClient(&cfg.Mattermost, log.Component("mattermost"))

	scoringService := scoring.NewService(engagementRepo, scoreRepo, loc, log)
	profileRepo := repository.NewProfileRepository(db)
	leaderboardService := leaderboard.NewService(scoreRepo, engagementRepo, profileRepo,
		snapshots, cfg.Cache.LeaderboardTTL(), log)
	challengeService := challenges.NewService(repository.NewChallengeRepository(db), repository.NewWalletRepository(db), notifier, log)
	tracker := challenges.NewTracker(challengeService, repository.NewActionRepository(db), log)
	sessions := challenges.NewSessions(tracker, nil)

	if cfg.Challenges.CatalogPath != "" {
		catalog, err := challenges.LoadCatalog(cfg.Challenges.CatalogPath)
		if err != nil {
			return err
		}
		if err := challengeService.SeedCatalog(ctx, catalog); err != nil {
			return err
		}
	}

	jobs := scheduler.NewService(&cfg.Scheduler, scheduler.Dependencies{
		Challenges:    challengeService,
		Window:        scoringService,
		Sessions:      sessions,
		SessionMaxAge: cfg.Challenges.SessionMaxAge(),
		Artists:       scoreRepo,
		Leaderboards:  leaderboardService,
		Digest:        notifier,
		Scores:        aggregator.NewService(scoreRepo, scoringService, leaderboardService, log),
	}, log.Component("scheduler"))
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log.Component("http")))
	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		if err := snapshots.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "cache": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1", middleware.Identity(cfg.Identity.Header))
	fans.NewHandler(scoringService, leaderboardService, log).RegisterRoutes(api)
	challengesapi.NewHandler(challengeService, tracker, sessions, log).RegisterRoutes(api)
	dashboard.NewHandler(metrics.NewService(scoreRepo, profileRepo, log), log).RegisterRoutes(api)

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Metrics.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("server %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err = <-errs:
		log.Error().Err(err).Msg("Server error, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Error().Err(serr).Str("addr", srv.Addr).Msg("Graceful shutdown failed")
		}
	}
	return err
}

// newCache builds the leaderboard snapshot cache selected by config.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Backend == config.CacheBackendMemory {
		return cache.NewMemoryCache(nil), nil
	}
	client, err := cache.NewRedisClient(ctx, &cfg.Database.Redis)
	if err != nil {
		return nil, err
	}
	return cache.NewRedisCache(client, "fanscore:"), nil
}
