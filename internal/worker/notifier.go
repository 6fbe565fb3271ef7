package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

// Notifier mails the doctors of an active surgery when it is booked or
// changed. Doctors without an email address are skipped.
type Notifier struct {
	doctors repository.DoctorRepository
	mail    email.Service
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewNotifier(doctors repository.DoctorRepository, mail email.Service, log *logger.Logger, m *metrics.Metrics) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{doctors: doctors, mail: mail, logger: log, metrics: m}
}

// Start subscribes to the surgery channels. Delivery stops when ctx is done.
func (n *Notifier) Start(ctx context.Context, broker messaging.Broker) error {
	if err := messaging.Consume(ctx, broker, n.logger.Zerolog(), n.handler(false), event.SurgeryCreated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.SurgeryCreated, err)
	}
	if err := messaging.Consume(ctx, broker, n.logger.Zerolog(), n.handler(true), event.SurgeryUpdated); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.SurgeryUpdated, err)
	}
	n.logger.Info("Notifier subscribed", "channels", []string{event.SurgeryCreated, event.SurgeryUpdated})
	return nil
}

func (n *Notifier) handler(rescheduled bool) messaging.Handler {
	return func(ctx context.Context, payload []byte) error {
		var p event.SurgeryPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to decode surgery event: %w", err)
		}
		return n.Notify(ctx, p, rescheduled)
	}
}

// Notify sends one notice per booked doctor.
func (n *Notifier) Notify(ctx context.Context, p event.SurgeryPayload, rescheduled bool) error {
	if !p.Active || len(p.DoctorIDs) == 0 {
		return nil
	}

	doctors, err := n.doctors.FindByIDs(ctx, p.DoctorIDs)
	if err != nil {
		return fmt.Errorf("failed to load doctors for surgery %s: %w", p.ID, err)
	}

	var errs []error
	for _, d := range doctors {
		if d.Email == "" {
			n.count("skipped")
			continue
		}
		notice := email.BookingNotice{
			DoctorName:   d.Name(),
			SurgeryTitle: p.Title,
			Day:          p.Day,
			Rescheduled:  rescheduled,
		}
		if err := n.mail.Send(ctx, d.Email, notice.Subject(), notice.Body()); err != nil {
			n.count("failed")
			n.logger.Error(err, "Failed to send booking notice", "surgery_id", p.ID, "doctor_id", d.ID)
			errs = append(errs, err)
			continue
		}
		n.count("sent")
	}
	return errors.Join(errs...)
}

func (n *Notifier) count(status string) {
	if n.metrics != nil {
		n.metrics.NotificationsSent.WithLabelValues(status).Inc()
	}
}
