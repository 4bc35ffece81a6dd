package audit

import (
	"testing"
	"time"

	"labportal_backend/internal/events"

	"github.com/google/uuid"
)

func TestEntryForMapsEvents(t *testing.T) {
	m := &Module{}
	orderID := uuid.New()
	userID := uuid.New()
	base := events.BaseEvent{Timestamp: time.Now()}

	tests := []struct {
		name         string
		event        events.Event
		wantAction   string
		wantOperator string
	}{
		{
			name: "results ingested",
			event: events.ResultsIngested{
				BaseEvent: base, TestOrderID: orderID, MessageID: uuid.New(),
				SourceSystem: "instrument-gw", CreatedCount: 3,
			},
			wantAction:   "results.ingested",
			wantOperator: "system",
		},
		{
			name: "ai reviewed",
			event: events.OrderAiReviewed{
				BaseEvent: base, TestOrderID: orderID, PredictedStatus: "Normal", ResultCount: 3,
			},
			wantAction:   "order.ai_reviewed",
			wantOperator: "system",
		},
		{
			name: "mode changed",
			event: events.AiReviewModeChanged{
				BaseEvent: base, TestOrderID: orderID, Enabled: true, ChangedByID: userID,
			},
			wantAction:   "order.ai_review_mode_changed",
			wantOperator: userID.String(),
		},
		{
			name: "results confirmed",
			event: events.ResultsConfirmed{
				BaseEvent: base, TestOrderID: orderID, ConfirmedByID: userID, ConfirmedCount: 2,
			},
			wantAction:   "results.confirmed",
			wantOperator: userID.String(),
		},
		{
			name: "order completed",
			event: events.OrderCompleted{
				BaseEvent: base, TestOrderID: orderID, PatientName: "Jane Roe",
				TestType: "CBC", CompletedByID: userID,
			},
			wantAction:   "order.completed",
			wantOperator: userID.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := m.entryFor(tt.event)
			if !ok {
				t.Fatal("event not mapped")
			}
			if entry.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", entry.Action, tt.wantAction)
			}
			if entry.Operator != tt.wantOperator {
				t.Errorf("operator = %q, want %q", entry.Operator, tt.wantOperator)
			}
			if entry.EntityID != orderID {
				t.Errorf("entity id = %s, want %s", entry.EntityID, orderID)
			}
			if entry.Message == "" {
				t.Error("empty audit message")
			}
		})
	}
}

type unrelatedEvent struct{ events.BaseEvent }

func (unrelatedEvent) EventName() string { return "orders.unrelated" }

func TestEntryForIgnoresUnknownEvents(t *testing.T) {
	m := &Module{}
	if _, ok := m.entryFor(unrelatedEvent{}); ok {
		t.Fatal("unknown event mapped to an audit entry")
	}
}
