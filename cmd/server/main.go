// Package main is the entrypoint of the class behavior scoring service.
//
// The service is an event-sourced scoring book for a school: teachers submit
// signed behavior scores per class and evaluation period, and weekly totals
// and per-grade rankings are always recomputed from the append-only event
// log, never stored.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure scoring/roster/leaderboard logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: PostgreSQL event store, Redis signals, projection service
// - Interface: HTTP REST endpoints
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JohnHuang626/school-score-app/config"
	"github.com/JohnHuang626/school-score-app/internal/application/command"
	"github.com/JohnHuang626/school-score-app/internal/application/query"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/messaging"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/persistence/postgres"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/persistence/redis"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/scheduler"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/scheduler/jobs"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/service"
	httpserver "github.com/JohnHuang626/school-score-app/internal/interface/http"
	"github.com/JohnHuang626/school-score-app/internal/interface/http/handlers"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// All civil-date handling runs in the configured school timezone.
	timeutil.SetLocation(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	})

	// The scheduler and snapshot hub log through slog.
	slogLevel := slog.LevelInfo
	if cfg.App.Debug {
		slogLevel = slog.LevelDebug
	}
	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))

	log.Info("starting school score service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbCfg := postgres.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	dbCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	dbCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	dbConn, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	eventRepo := postgres.NewScoreEventRepository(dbConn)
	settingsRepo := postgres.NewRosterRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SNAPSHOT HUB & PROJECTION
	// ─────────────────────────────────────────────────────────────────────────
	hub := messaging.NewSnapshotHub(slogger)
	defer hub.Close()

	projection := service.NewProjectionService(eventRepo, settingsRepo, hub, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REDIS (optional: ranking cache + cross-instance change signals)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		notifier     scoring.ChangeNotifier
		rankingCache query.RankingCache
		listener     *redis.ChangeListener
		redisCache   *redis.Cache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis", logger.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisCache.Close()

		notifier = redis.NewChangeNotifier(redisCache)
		rankingCache = redis.NewRankingCache(redisCache, cfg.Scoring.RankingCacheTTL, log)

		// Change signals from any instance (this one included) trigger a
		// full snapshot reload. Reload is idempotent, so self-delivery is
		// harmless and keeps the local read side in sync with local writes.
		listener = redis.NewChangeListener(redisCache, log)
		listener.Start(func(ctx context.Context, kind redis.ChangeKind) {
			if err := projection.Reload(ctx); err != nil {
				log.Warn("snapshot reload after change signal failed",
					logger.String("kind", string(kind)),
					logger.Err(err),
				)
			}
		})
		defer listener.Stop()
	} else {
		// Without Redis the write side reloads the local projection
		// directly; the periodic reconcile still covers anything missed.
		log.Info("Redis disabled, using in-process change propagation")
		notifier = &localChangeNotifier{projection: projection}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. INITIAL PROJECTION LOAD
	// ─────────────────────────────────────────────────────────────────────────
	warmCtx, warmCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := projection.WarmUp(warmCtx, 2*time.Second); err != nil {
		warmCancel()
		return fmt.Errorf("initial projection load failed: %w", err)
	}
	warmCancel()
	log.Info("projection loaded",
		logger.Int("events", len(projection.Events())),
		logger.Int64("version", int64(projection.Version())),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SCHEDULER (periodic reconcile backstop)
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Logger:   slogger,
			Timezone: cfg.App.Location,
		})

		reconcile := jobs.NewReconcileProjection(projection, cfg.Scheduler.JobTimeout)
		if err := sched.Register(reconcile, scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcileInterval)); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}

		if rankingCache != nil {
			warm := jobs.NewWarmRankings(projection, rankingCache, cfg.Scheduler.JobTimeout)
			if err := sched.Register(warm, scheduler.NewIntervalSchedule(cfg.Scheduler.WarmRankingsInterval)); err != nil {
				return fmt.Errorf("failed to register ranking warm job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. APPLICATION LAYER (Commands & Queries)
	// ─────────────────────────────────────────────────────────────────────────
	periods := make([]scoring.Period, 0, len(cfg.Scoring.Periods))
	for _, p := range cfg.Scoring.Periods {
		periods = append(periods, scoring.Period(p))
	}

	submitScores := command.NewSubmitScoresHandler(eventRepo, notifier, periods, log)
	deleteEvent := command.NewDeleteEventHandler(eventRepo, notifier, log)
	clearHistory := command.NewClearHistoryHandler(eventRepo, notifier, log)
	updateRoster := command.NewUpdateRosterHandler(settingsRepo, notifier, log)

	weeklyTotals := query.NewGetWeeklyTotalsHandler(projection)
	rankings := query.NewGetLeaderboardHandler(projection, rankingCache)
	history := query.NewGetHistoryHandler(projection)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	healthChecker.AddCheck("projection", handlers.NewProjectionCheck(projection))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.Server.Host
	httpCfg.Port = cfg.Server.Port
	httpCfg.ReadTimeout = cfg.Server.ReadTimeout
	httpCfg.WriteTimeout = cfg.Server.WriteTimeout
	httpCfg.IdleTimeout = cfg.Server.IdleTimeout
	httpCfg.MaxRequestBody = cfg.Server.MaxRequestBody
	httpCfg.AdminToken = cfg.Server.AdminToken

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		SubmitScoresHandler:    submitScores,
		DeleteEventHandler:     deleteEvent,
		ClearHistoryHandler:    clearHistory,
		UpdateRosterHandler:    updateRoster,
		GetWeeklyTotalsHandler: weeklyTotals,
		GetLeaderboardHandler:  rankings,
		GetHistoryHandler:      history,
		Snapshots:              projection,
		Logger:                 log,
		HealthChecker:          healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("school score service is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// localChangeNotifier propagates change signals without Redis by reloading
// the local projection directly. Single-instance deployments need nothing
// more; multi-instance deployments rely on Redis pub/sub plus the periodic
// reconcile.
type localChangeNotifier struct {
	projection *service.ProjectionService
}

// NotifyEventsChanged implements scoring.ChangeNotifier.
func (n *localChangeNotifier) NotifyEventsChanged(ctx context.Context) error {
	return n.projection.Reload(ctx)
}

// NotifySettingsChanged implements scoring.ChangeNotifier.
func (n *localChangeNotifier) NotifySettingsChanged(ctx context.Context) error {
	return n.projection.Reload(ctx)
}
