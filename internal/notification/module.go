// Package notification sends email in response to domain events. It
// subscribes to the bus so domain modules never know about SMTP.
package notification

import (
	"context"

	"labportal_backend/internal/events"
	"labportal_backend/platform/config"
	"labportal_backend/platform/logger"
)

// Module watches for completed orders and notifies the lab supervisor.
// When SMTP is not configured the module stays registered but sends
// nothing.
type Module struct {
	sender     Sender
	supervisor string
	enabled    bool
	log        *logger.Logger
}

func NewModule(cfg config.EmailConfig, log *logger.Logger) *Module {
	m := &Module{
		supervisor: cfg.GetSupervisorEmail(),
		enabled:    cfg.GetEmailEnabled() && cfg.GetSMTPHost() != "" && cfg.GetSupervisorEmail() != "",
		log:        log,
	}
	if m.enabled {
		m.sender = NewSMTPSender(cfg)
	} else {
		log.Info("email notifications disabled")
	}
	return m
}

func (m *Module) Name() string {
	return "notification"
}

// RegisterHandlers subscribes to the notified domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.OrderCompleted{}.EventName(), m)
}

// Handle delivers the notification for one event. Send failures are
// logged and swallowed: email never blocks the domain flow.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	if !m.enabled {
		return nil
	}

	completed, ok := event.(events.OrderCompleted)
	if !ok {
		return nil
	}

	err := m.sender.SendOrderCompletedEmail(
		ctx, m.supervisor, completed.PatientName, completed.TestType, completed.TestOrderID.String(),
	)
	if err != nil {
		m.log.Error("order completed email failed",
			"testOrderId", completed.TestOrderID.String(),
			"error", err,
		)
	}
	return nil
}

var _ events.Handler = (*Module)(nil)
