package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/access"
	"github.com/carlostoek/dianabot-auctions/internal/auction"
	"github.com/carlostoek/dianabot-auctions/internal/cache"
	"github.com/carlostoek/dianabot-auctions/internal/clock"
	"github.com/carlostoek/dianabot-auctions/internal/config"
	"github.com/carlostoek/dianabot-auctions/internal/delivery"
	"github.com/carlostoek/dianabot-auctions/internal/health"
	"github.com/carlostoek/dianabot-auctions/internal/leader"
	"github.com/carlostoek/dianabot-auctions/internal/ledger"
	"github.com/carlostoek/dianabot-auctions/internal/notify"
	"github.com/carlostoek/dianabot-auctions/internal/store"
	"github.com/carlostoek/dianabot-auctions/internal/store/postgres"
	"github.com/carlostoek/dianabot-auctions/internal/telemetry"

	// Register the memory store driver; the postgres import above
	// registers the other.
	_ "github.com/carlostoek/dianabot-auctions/internal/store/memstore"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Open store using the configured driver (postgres or memory).
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to database", slog.String("driver", cfg.Database.Driver))

	// The besitos ledger shares the database in the postgres configuration
	// and falls back to an in-process ledger for the memory driver.
	var ldg ledger.Ledger
	if cfg.Database.Driver == "postgres" {
		ledgerDB, connErr := postgres.Connect(ctx, cfg.Database)
		if connErr != nil {
			return fmt.Errorf("opening ledger connection: %w", connErr)
		}
		defer ledgerDB.Close()
		ldg = ledger.NewPostgres(ledgerDB)
	} else {
		ldg = ledger.NewMemory()
	}
	ldg = ledger.WithRetry(ldg, 30*time.Second)

	// Notification port: NATS when configured, otherwise a no-op.
	var port notify.Port = notify.Nop{}
	if cfg.NATS.URL != "" {
		nc, natsErr := notify.NewNATSPublisher(cfg.NATS.URL)
		if natsErr != nil {
			return fmt.Errorf("connecting to nats: %w", natsErr)
		}
		defer nc.Close()
		port = nc
	}

	emitter := notify.NewEmitter(port, repos.Watches, logger, cfg.Engine.NotifyBuffer)
	go emitter.Run(ctx)

	// View cache: Redis when configured, otherwise a no-op.
	var views cache.ViewCache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		rc, redisErr := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ViewTTL)
		if redisErr != nil {
			return fmt.Errorf("connecting to redis: %w", redisErr)
		}
		defer rc.Close()
		views = rc
	}

	// Delivery rides the same broker when one is configured; without a
	// broker, won items are recorded in process only.
	var contentPort delivery.Deliverer = delivery.NewRecorder()
	if cfg.NATS.URL != "" {
		nd, deliveryErr := delivery.NewNATSDeliverer(cfg.NATS.URL, 5*time.Second)
		if deliveryErr != nil {
			return fmt.Errorf("connecting delivery port: %w", deliveryErr)
		}
		defer nd.Close()
		contentPort = nd
	}
	deliverer := delivery.WithRetry(contentPort, 30*time.Second)
	checker := access.NewStoreChecker(repos.Users)

	engine := auction.NewEngine(repos, ldg, checker, deliverer, emitter, views,
		logger, tp.TracerProvider, clk, cfg.Engine)

	// Setup health checks.
	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)

	// Start HTTP server for health checks (runs on all replicas).
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler())
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting health server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "health server error", slog.Any("error", listenErr))
		}
	}()

	// runSweeper is the core work that only the leader should run.
	runSweeper := func(ctx context.Context) {
		// Warm up in-flight auctions so they survive leader failover.
		if n, recoverErr := engine.Recover(ctx); recoverErr != nil {
			logger.ErrorContext(ctx, "auction recovery failed", slog.Any("error", recoverErr))
		} else if n > 0 {
			logger.InfoContext(ctx, "recovered open auctions", slog.Int("count", n))
		}

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctiond is running (leader)", slog.String("version", version))

		ticker := time.NewTicker(cfg.Engine.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				healthHandler.SetReady(false)
				return
			case <-ticker.C:
				if tickErr := engine.Tick(ctx); tickErr != nil {
					logger.ErrorContext(ctx, "lifecycle sweep error", slog.Any("error", tickErr))
				}
			}
		}
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, runSweeper, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		// No leader election — run the sweeper directly.
		runSweeper(ctx)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
