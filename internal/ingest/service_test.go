package ingest

import (
	"context"
	"testing"
	"time"

	"labportal_backend/internal/flagging"
	"labportal_backend/internal/orders/domain"
	"labportal_backend/platform/apperr"
	"labportal_backend/platform/events"
	"labportal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeGateway struct {
	set   RawResultSet
	err   error
	calls int
}

func (g *fakeGateway) FetchRawResults(_ context.Context, _ uuid.UUID, _ string) (RawResultSet, error) {
	g.calls++
	if g.err != nil {
		return RawResultSet{}, g.err
	}
	return g.set, nil
}

type fakeLedger struct {
	existing     *ProcessedMessage
	registered   []uuid.UUID
	persisted    []NewResult
	persistErr   error
	finalizeDone bool
}

func (l *fakeLedger) TryRegister(_ context.Context, messageID uuid.UUID, sourceSystem string, orderID uuid.UUID) (bool, ProcessedMessage, error) {
	if l.existing != nil {
		return false, *l.existing, nil
	}
	l.registered = append(l.registered, messageID)
	return true, ProcessedMessage{
		MessageID:    messageID,
		SourceSystem: sourceSystem,
		TestOrderID:  orderID,
		RegisteredAt: time.Now().UTC(),
	}, nil
}

func (l *fakeLedger) PersistAndFinalize(_ context.Context, _ uuid.UUID, results []NewResult, _ time.Time) (int, error) {
	if l.persistErr != nil {
		return 0, l.persistErr
	}
	l.persisted = results
	l.finalizeDone = true
	return len(results), nil
}

type fakeOrderReader struct {
	order Order
	err   error
}

func (r *fakeOrderReader) GetOrder(_ context.Context, _ uuid.UUID) (Order, error) {
	if r.err != nil {
		return Order{}, r.err
	}
	return r.order, nil
}

type fakeFlagProvider struct {
	snapshot *flagging.Snapshot
}

func (p *fakeFlagProvider) Snapshot(_ context.Context) (*flagging.Snapshot, error) {
	return p.snapshot, nil
}

type busRecorder struct {
	events []string
}

func (b *busRecorder) Publish(_ context.Context, event events.Event) {
	b.events = append(b.events, event.EventName())
}

func (b *busRecorder) PublishSync(_ context.Context, event events.Event) error {
	b.events = append(b.events, event.EventName())
	return nil
}

func (b *busRecorder) Subscribe(string, events.Handler) {}

func floatPtr(v float64) *float64 { return &v }

func testSnapshot() *flagging.Snapshot {
	return flagging.NewSnapshot([]flagging.Config{
		{TestCode: "WBC", Min: 4.0, Max: 10.0, IsActive: true},
		{TestCode: "HGB", Gender: "m", Min: 13.5, Max: 17.5, IsActive: true},
		{TestCode: "HGB", Gender: "f", Min: 12.0, Max: 15.5, IsActive: true},
	})
}

func newTestService(gw *fakeGateway, ledger *fakeLedger, orders *fakeOrderReader) (*Service, *busRecorder) {
	bus := &busRecorder{}
	log := logger.New("test")
	return NewService(gw, ledger, orders, &fakeFlagProvider{snapshot: testSnapshot()}, bus, log, "instrument-gw"), bus
}

func TestIngestPersistsFlaggedResults(t *testing.T) {
	orderID := uuid.New()
	performed := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	gw := &fakeGateway{set: RawResultSet{
		Instrument:    "hematology-7",
		PerformedDate: performed,
		Items: []RawItem{
			{TestCode: "WBC", Parameter: "White Blood Cells", Value: floatPtr(11.2), Unit: "10^9/L", StatusHint: "Normal"},
			{TestCode: "HGB", Parameter: "Hemoglobin", Value: floatPtr(12.5), Unit: "g/dL"},
			{TestCode: "MORPH", Parameter: "Morphology", ValueText: "unremarkable", StatusHint: "Normal"},
		},
	}}
	ledger := &fakeLedger{}
	orders := &fakeOrderReader{order: Order{ID: orderID, PatientGender: "F", Status: domain.StatusPending}}

	svc, bus := newTestService(gw, ledger, orders)

	outcome, err := svc.Ingest(context.Background(), orderID, "CBC")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !outcome.Success || outcome.Deduplicated {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.CreatedCount != 3 {
		t.Fatalf("created count = %d, want 3", outcome.CreatedCount)
	}
	if outcome.MessageID != DeriveMessageID(orderID, performed) {
		t.Fatalf("message id not derived from order and performed date")
	}

	if len(ledger.persisted) != 3 {
		t.Fatalf("persisted %d results, want 3", len(ledger.persisted))
	}
	// Computed flag wins over the instrument's status hint.
	wbc := ledger.persisted[0]
	if wbc.Flag != string(domain.FlagHigh) || wbc.ResultStatus != string(domain.FlagHigh) {
		t.Errorf("WBC flag/status = %q/%q, want High/High", wbc.Flag, wbc.ResultStatus)
	}
	// Gender-specific range applies for a female patient: 12.5 is normal.
	hgb := ledger.persisted[1]
	if hgb.Flag != string(domain.FlagNormal) {
		t.Errorf("HGB flag = %q, want Normal", hgb.Flag)
	}
	// Textual values carry no flag and keep the hint.
	morph := ledger.persisted[2]
	if morph.Flag != "" || morph.ResultStatus != "Normal" {
		t.Errorf("MORPH flag/status = %q/%q, want \"\"/Normal", morph.Flag, morph.ResultStatus)
	}

	if len(bus.events) != 1 || bus.events[0] != "ingest.results.ingested" {
		t.Errorf("published events = %v, want [ingest.results.ingested]", bus.events)
	}
}

func TestIngestReplaysFinalizedDuplicate(t *testing.T) {
	orderID := uuid.New()
	performed := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	messageID := DeriveMessageID(orderID, performed)
	processedAt := time.Date(2026, 3, 10, 9, 31, 0, 0, time.UTC)
	count := 5

	gw := &fakeGateway{set: RawResultSet{
		Instrument:    "hematology-7",
		PerformedDate: performed,
		Items:         []RawItem{{TestCode: "WBC", Parameter: "White Blood Cells", Value: floatPtr(6.0)}},
	}}
	ledger := &fakeLedger{existing: &ProcessedMessage{
		MessageID:    messageID,
		TestOrderID:  orderID,
		RegisteredAt: processedAt.Add(-time.Minute),
		ProcessedAt:  &processedAt,
		CreatedCount: &count,
	}}
	orders := &fakeOrderReader{order: Order{ID: orderID}}

	svc, bus := newTestService(gw, ledger, orders)

	outcome, err := svc.Ingest(context.Background(), orderID, "CBC")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !outcome.Deduplicated {
		t.Fatal("outcome not marked deduplicated")
	}
	if outcome.CreatedCount != 5 || !outcome.ProcessedAt.Equal(processedAt) {
		t.Fatalf("replayed outcome = %+v, want count 5 at %s", outcome, processedAt)
	}
	if ledger.finalizeDone {
		t.Error("duplicate delivery wrote to storage")
	}
	if len(bus.events) != 0 {
		t.Errorf("duplicate delivery published events: %v", bus.events)
	}
}

func TestIngestInFlightDuplicateConflicts(t *testing.T) {
	orderID := uuid.New()
	performed := time.Now().UTC()
	gw := &fakeGateway{set: RawResultSet{
		PerformedDate: performed,
		Items:         []RawItem{{TestCode: "WBC", Parameter: "White Blood Cells", Value: floatPtr(6.0)}},
	}}
	// Provisional record, no processed_at: another delivery is running.
	ledger := &fakeLedger{existing: &ProcessedMessage{
		MessageID:    DeriveMessageID(orderID, performed),
		TestOrderID:  orderID,
		RegisteredAt: time.Now().UTC(),
	}}

	svc, _ := newTestService(gw, ledger, &fakeOrderReader{order: Order{ID: orderID}})

	_, err := svc.Ingest(context.Background(), orderID, "CBC")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestIngestGatewayFailureLeavesNoTrace(t *testing.T) {
	gw := &fakeGateway{err: apperr.Upstream("instrument gateway returned status 503", nil)}
	ledger := &fakeLedger{}

	svc, bus := newTestService(gw, ledger, &fakeOrderReader{})

	_, err := svc.Ingest(context.Background(), uuid.New(), "CBC")
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("err = %v, want upstream", err)
	}
	if len(ledger.registered) != 0 {
		t.Error("gateway failure registered a ledger entry")
	}
	if len(bus.events) != 0 {
		t.Errorf("gateway failure published events: %v", bus.events)
	}
}

func TestIngestUnknownOrderFails(t *testing.T) {
	gw := &fakeGateway{set: RawResultSet{
		PerformedDate: time.Now().UTC(),
		Items:         []RawItem{{TestCode: "WBC", Parameter: "White Blood Cells", Value: floatPtr(6.0)}},
	}}

	svc, _ := newTestService(gw, &fakeLedger{}, &fakeOrderReader{err: ErrOrderNotFound})

	_, err := svc.Ingest(context.Background(), uuid.New(), "CBC")
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestIngestRejectsMalformedItem(t *testing.T) {
	gw := &fakeGateway{set: RawResultSet{
		PerformedDate: time.Now().UTC(),
		Items: []RawItem{
			{TestCode: "WBC", Parameter: "White Blood Cells", Value: floatPtr(6.0)},
			{TestCode: "", Parameter: "Mystery", Value: floatPtr(1.0)},
		},
	}}
	ledger := &fakeLedger{}

	svc, _ := newTestService(gw, ledger, &fakeOrderReader{order: Order{ID: uuid.New()}})

	_, err := svc.Ingest(context.Background(), uuid.New(), "CBC")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
	if ledger.finalizeDone {
		t.Error("malformed batch was persisted")
	}
}

func TestIngestUnconfiguredTestCodeDefaultsNormal(t *testing.T) {
	orderID := uuid.New()
	gw := &fakeGateway{set: RawResultSet{
		PerformedDate: time.Now().UTC(),
		Items:         []RawItem{{TestCode: "XYZ", Parameter: "Unmapped", Value: floatPtr(999), StatusHint: "High"}},
	}}
	ledger := &fakeLedger{}

	svc, _ := newTestService(gw, ledger, &fakeOrderReader{order: Order{ID: orderID}})

	if _, err := svc.Ingest(context.Background(), orderID, "CBC"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got := ledger.persisted[0].Flag; got != string(domain.FlagNormal) {
		t.Errorf("flag = %q, want Normal for unconfigured test code", got)
	}
}
