package notification

import (
	"context"
	"testing"
	"time"

	"labportal_backend/internal/events"
	"labportal_backend/platform/logger"

	"github.com/google/uuid"
)

type emailConfig struct {
	enabled    bool
	host       string
	supervisor string
}

func (c emailConfig) GetEmailEnabled() bool       { return c.enabled }
func (c emailConfig) GetSMTPHost() string         { return c.host }
func (c emailConfig) GetSMTPPort() int            { return 587 }
func (c emailConfig) GetSMTPUsername() string     { return "lab" }
func (c emailConfig) GetSMTPPassword() string     { return "secret" }
func (c emailConfig) GetEmailFromAddress() string { return "noreply@lab.example" }
func (c emailConfig) GetSupervisorEmail() string  { return c.supervisor }

type recordingSender struct {
	sent []string
	err  error
}

func (s *recordingSender) SendOrderCompletedEmail(_ context.Context, toEmail, _, _, _ string) error {
	s.sent = append(s.sent, toEmail)
	return s.err
}

func completedEvent() events.OrderCompleted {
	return events.OrderCompleted{
		BaseEvent:     events.BaseEvent{Timestamp: time.Now()},
		TestOrderID:   uuid.New(),
		PatientName:   "Jane Roe",
		TestType:      "CBC",
		CompletedByID: uuid.New(),
	}
}

func TestHandleSendsToSupervisor(t *testing.T) {
	sender := &recordingSender{}
	m := &Module{sender: sender, supervisor: "supervisor@lab.example", enabled: true, log: logger.New("test")}

	if err := m.Handle(context.Background(), completedEvent()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "supervisor@lab.example" {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestHandleDisabledSendsNothing(t *testing.T) {
	m := NewModule(emailConfig{enabled: false}, logger.New("test"))

	if err := m.Handle(context.Background(), completedEvent()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestNewModuleRequiresFullSMTPConfig(t *testing.T) {
	// Enabled flag alone is not enough: host and supervisor must be set.
	m := NewModule(emailConfig{enabled: true, host: "", supervisor: ""}, logger.New("test"))
	if m.enabled {
		t.Fatal("module enabled without smtp host and supervisor")
	}
}

func TestHandleSwallowsSendFailures(t *testing.T) {
	sender := &recordingSender{err: context.DeadlineExceeded}
	m := &Module{sender: sender, supervisor: "supervisor@lab.example", enabled: true, log: logger.New("test")}

	if err := m.Handle(context.Background(), completedEvent()); err != nil {
		t.Fatalf("send failure propagated: %v", err)
	}
}
