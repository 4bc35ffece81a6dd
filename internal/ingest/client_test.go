package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type schedulerConfig struct {
	redisURL string
	queue    string
}

func (c schedulerConfig) GetRedisURL() string        { return c.redisURL }
func (c schedulerConfig) GetRedisTLSInsecure() bool  { return false }
func (c schedulerConfig) GetAsynqQueueName() string  { return c.queue }
func (c schedulerConfig) GetAsynqConcurrency() int   { return 1 }

func TestEnqueueResultsIngest(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(schedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "ingest"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	orderID := uuid.New()
	if err := client.EnqueueResultsIngest(context.Background(), orderID, "CBC", "instrument-gw"); err != nil {
		t.Fatalf("EnqueueResultsIngest: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("ingest")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskResultsIngest {
		t.Errorf("task type = %q, want %q", tasks[0].Type, TaskResultsIngest)
	}

	var payload ResultsIngestPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TestOrderID != orderID.String() || payload.TestType != "CBC" || payload.SourceSystem != "instrument-gw" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(schedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}
