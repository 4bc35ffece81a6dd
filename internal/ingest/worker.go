package ingest

import (
	"context"
	"fmt"

	"labportal_backend/platform/config"
	"labportal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes ingestion tasks off the queue. Handler errors are
// returned to asynq so failed deliveries are retried; the dedup ledger
// keeps the retries idempotent.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	service *Service
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, service *Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		service: service,
		log:     log,
	}

	mux.HandleFunc(TaskResultsIngest, w.handleResultsIngest)

	return w, nil
}

func (w *Worker) handleResultsIngest(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseResultsIngestPayload(task)
	if err != nil {
		return err
	}

	orderID, err := uuid.Parse(payload.TestOrderID)
	if err != nil {
		return err
	}

	outcome, err := w.service.Ingest(ctx, orderID, payload.TestType)
	if err != nil {
		return err
	}

	if outcome.Deduplicated {
		w.log.Info("ingest task deduplicated",
			"testOrderId", payload.TestOrderID,
			"messageId", outcome.MessageID.String(),
		)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("ingest worker stopped", "error", err)
	}
}
