package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rwaltman/basisengine/internal/api"
	"github.com/rwaltman/basisengine/internal/api/handlers"
	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/engine"
	"github.com/rwaltman/basisengine/internal/feed/futures"
	"github.com/rwaltman/basisengine/internal/scheduler"
	"github.com/rwaltman/basisengine/internal/scheduler/jobs"
	"github.com/rwaltman/basisengine/internal/store"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/database"
	"github.com/rwaltman/basisengine/pkg/logger"
	"github.com/rwaltman/basisengine/pkg/redis"
)

// daemonCmd runs the engine continuously with the API server.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the engine on a schedule with the HTTP API",
	Long: `Starts the full service: scheduled refresh cycles, snapshot
persistence, and the read-side HTTP API.

Endpoints:
  GET  /health
  GET  /api/snapshot
  GET  /api/curve
  GET  /api/ctd
  GET  /api/ctd/{tenor}
  GET  /api/opportunities
  GET  /api/orders
  GET  /api/history/curves
  GET  /api/history/opportunities
  GET  /api/history/orders
  POST /api/refresh

Example:
  basisengine daemon
  basisengine daemon --refresh "*/30 * * * * *" --port 8086`,
	RunE: runDaemon,
}

var (
	daemonPort      string
	refreshSchedule string
	retentionDays   int
)

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonPort, "port", "", "API server port (overrides PORT)")
	daemonCmd.Flags().StringVar(&refreshSchedule, "refresh", "*/30 * * * * *", "refresh cycle cron schedule")
	daemonCmd.Flags().IntVar(&retentionDays, "retention-days", 30, "days of persisted history to keep")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if daemonPort != "" {
		cfg.Port = daemonPort
	}
	log := logger.New(cfg)

	strategy, hash, err := loadStrategy(log)
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(context.Background(), db.Pool); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "basisengine")

	deps := withStores(newFeedDeps(cfg, log), db, cache)
	eng, err := engine.New(strategy, hash, deps, log)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	// Scheduler: refresh cycles plus nightly store pruning.
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewRefreshJob(eng, refreshSchedule, 90*time.Second, log)); err != nil {
		return err
	}
	maintenance := jobs.NewMaintenanceJob(
		store.NewCurveRepository(db.Pool),
		store.NewOpportunityRepository(db.Pool),
		store.NewOrderRepository(db.Pool),
		time.Duration(retentionDays)*24*time.Hour,
		"0 0 3 * * *",
		log,
	)
	if err := sched.AddJob(maintenance); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// Retention should not wait for the nightly slot after a long
	// outage; prune once on boot in the background.
	if err := sched.RunNow("store_maintenance"); err != nil {
		log.WithError(err).Warn("Startup store maintenance failed")
	}

	// Warm the snapshot before serving, synchronously: the API must not
	// answer 503 once this returns. Failure is not fatal; readers get
	// the cached view until a scheduled cycle lands.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 90*time.Second)
	if _, err := eng.RunCycle(warmCtx); err != nil {
		log.WithError(err).Warn("Warm-up cycle failed")
	}
	cancelWarm()

	// Optional push feed: spread ticks trigger a re-price between
	// scheduled cycles. Concurrent triggers collapse inside the engine.
	if cfg.Futures.StreamURL != "" {
		stream := futures.NewStream(cfg.Futures, log)
		stream.OnSpread(func(contracts.SpreadQuote) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
				defer cancel()
				if _, err := eng.RunCycle(ctx); err != nil {
					log.WithError(err).Debug("Stream-triggered refresh skipped")
				}
			}()
		})
		stream.OnError(func(err error) {
			log.WithError(err).Warn("Quote stream error")
		})
		if err := stream.Connect(context.Background()); err != nil {
			log.WithError(err).Warn("Quote stream unavailable, polling only")
		} else {
			defer stream.Disconnect()
			if snap := eng.Snapshot(); snap != nil {
				symbols := make([]string, 0, len(snap.CTDs))
				for _, r := range snap.CTDs {
					symbols = append(symbols, r.Contract)
				}
				if err := stream.Subscribe(symbols...); err != nil {
					log.WithError(err).Warn("Stream subscription failed")
				}
			}
		}
	}

	engineHandler := handlers.NewEngineHandler(eng, cache, log)
	historyHandler := handlers.NewHistoryHandler(
		store.NewCurveRepository(db.Pool),
		store.NewOpportunityRepository(db.Pool),
		store.NewOrderRepository(db.Pool),
		log,
	)
	router := api.NewRouter(engineHandler, historyHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Engine running on http://localhost:%s (refresh %q)\n", cfg.Port, refreshSchedule)

	// Block until interrupt, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Evict the shared view: nothing will refresh it once this process
	// stops, and cross-process readers must not act on it.
	if err := cache.Delete(ctx, "snapshot:latest"); err != nil {
		log.WithError(err).Warn("Failed to evict cached snapshot")
	}

	return server.Shutdown(ctx)
}
