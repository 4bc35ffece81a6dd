package ingest

import (
	"context"
	"crypto/tls"
	"fmt"

	"labportal_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues ingestion tasks for background processing.
type Client struct {
	client *asynq.Client
	queue  string
}

// IngestScheduler is the enqueue surface other modules depend on.
type IngestScheduler interface {
	EnqueueResultsIngest(ctx context.Context, orderID uuid.UUID, testType, sourceSystem string) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueResultsIngest queues one ingestion unit of work. Duplicate
// deliveries are harmless: the dedup ledger replays the first outcome.
func (c *Client) EnqueueResultsIngest(ctx context.Context, orderID uuid.UUID, testType, sourceSystem string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewResultsIngestTask(ResultsIngestPayload{
		TestOrderID:  orderID.String(),
		TestType:     testType,
		SourceSystem: sourceSystem,
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
