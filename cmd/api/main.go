package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labportal_backend/internal/aireview"
	"labportal_backend/internal/audit"
	"labportal_backend/internal/events"
	"labportal_backend/internal/flagging"
	apphttp "labportal_backend/internal/http"
	"labportal_backend/internal/http/router"
	"labportal_backend/internal/ingest"
	"labportal_backend/internal/notification"
	"labportal_backend/internal/orders"
	"labportal_backend/platform/config"
	"labportal_backend/platform/db"
	"labportal_backend/platform/logger"
	"labportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	val := validator.New()

	// Reference ranges are seeded from file so a fresh deployment can
	// flag results immediately.
	flagRepo := flagging.NewRepository(pool)
	if err := syncFlaggingSeed(ctx, cfg, flagRepo, log); err != nil {
		log.Error("failed to sync flagging seed", "error", err)
		panic("failed to sync flagging seed: " + err.Error())
	}

	ingestScheduler, closeScheduler := initIngestScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	auditModule := audit.NewModule(pool, log)
	auditModule.RegisterHandlers(eventBus)

	notificationModule := notification.NewModule(cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	ordersModule := orders.NewModule(pool, eventBus, val)
	ingestModule := ingest.NewModule(pool, cfg, ordersModule.Repository(), flagRepo, ingestScheduler, eventBus, log, val)
	aireviewModule := aireview.NewModule(pool, cfg, ordersModule.Repository(), eventBus, log, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			ordersModule,
			ingestModule,
			aireviewModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func syncFlaggingSeed(ctx context.Context, cfg config.FlaggingConfig, repo *flagging.Repository, log *logger.Logger) error {
	path := cfg.GetFlaggingSeedPath()
	if path == "" {
		log.Warn("FLAGGING_SEED_PATH not configured; skipping reference range sync")
		return nil
	}

	configs, err := flagging.LoadSeed(path)
	if err != nil {
		return err
	}
	if err := repo.SyncSeed(ctx, configs); err != nil {
		return err
	}

	log.Info("flagging reference ranges synced", "count", len(configs), "path", path)
	return nil
}

func initIngestScheduler(cfg config.SchedulerConfig, log *logger.Logger) (ingest.IngestScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; async ingestion disabled")
		return nil, nil
	}

	client, err := ingest.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize ingest scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
