package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labportal_backend/internal/audit"
	"labportal_backend/internal/events"
	"labportal_backend/internal/flagging"
	"labportal_backend/internal/ingest"
	"labportal_backend/internal/notification"
	ordersrepo "labportal_backend/internal/orders/repository"
	"labportal_backend/platform/config"
	"labportal_backend/platform/db"
	"labportal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting ingest worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	auditModule := audit.NewModule(pool, log)
	auditModule.RegisterHandlers(eventBus)

	notificationModule := notification.NewModule(cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	gateway := ingest.NewHTTPGateway(cfg)
	ledger := ingest.NewRepository(pool)
	orderReader := ingest.NewOrderReader(ordersrepo.New(pool))
	flagRepo := flagging.NewRepository(pool)

	service := ingest.NewService(
		gateway, ledger, orderReader, flagRepo, eventBus, log,
		cfg.GetInstrumentSourceSystem(),
	)

	worker, err := ingest.NewWorker(cfg, service, log)
	if err != nil {
		log.Error("failed to initialize ingest worker", "error", err)
		panic("failed to initialize ingest worker: " + err.Error())
	}

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(runCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped with error", "error", err)
		return
	}
	log.Info("worker stopped")
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
