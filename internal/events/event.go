// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"labportal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Ingestion Domain Events
// =============================================================================

// ResultsIngested is published after one ingestion unit of work has
// persisted its result rows and finalized the dedup ledger entry.
type ResultsIngested struct {
	BaseEvent
	TestOrderID  uuid.UUID `json:"testOrderId"`
	MessageID    uuid.UUID `json:"messageId"`
	SourceSystem string    `json:"sourceSystem"`
	TestType     string    `json:"testType"`
	CreatedCount int       `json:"createdCount"`
	ProcessedAt  time.Time `json:"processedAt"`
}

func (e ResultsIngested) EventName() string { return "ingest.results.ingested" }

// =============================================================================
// AI Review Domain Events
// =============================================================================

// OrderAiReviewed is published when the AI verdict has been applied to
// every result on an order and the order advanced to ReviewedByAI.
type OrderAiReviewed struct {
	BaseEvent
	TestOrderID     uuid.UUID `json:"testOrderId"`
	PredictedStatus string    `json:"predictedStatus"`
	ResultCount     int       `json:"resultCount"`
}

func (e OrderAiReviewed) EventName() string { return "aireview.order.reviewed" }

// AiReviewModeChanged is published when the per-order AI review gate flips.
type AiReviewModeChanged struct {
	BaseEvent
	TestOrderID uuid.UUID `json:"testOrderId"`
	Enabled     bool      `json:"enabled"`
	ChangedByID uuid.UUID `json:"changedById"`
}

func (e AiReviewModeChanged) EventName() string { return "orders.ai_review_mode.changed" }

// =============================================================================
// Confirmation Domain Events
// =============================================================================

// ResultsConfirmed is published after a confirm call finalizes one or
// more AI-reviewed results.
type ResultsConfirmed struct {
	BaseEvent
	TestOrderID    uuid.UUID `json:"testOrderId"`
	ConfirmedByID  uuid.UUID `json:"confirmedById"`
	ConfirmedCount int       `json:"confirmedCount"`
}

func (e ResultsConfirmed) EventName() string { return "aireview.results.confirmed" }

// OrderCompleted is published when the confirmation coordinator derives
// that every AI-reviewed result is confirmed and completes the order.
type OrderCompleted struct {
	BaseEvent
	TestOrderID   uuid.UUID `json:"testOrderId"`
	PatientName   string    `json:"patientName"`
	TestType      string    `json:"testType"`
	CompletedByID uuid.UUID `json:"completedById"`
}

func (e OrderCompleted) EventName() string { return "orders.order.completed" }
