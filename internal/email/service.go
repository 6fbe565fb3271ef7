// Package email delivers booking notices to doctors.
package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

// BookingNotice tells a doctor they were booked for a surgery.
type BookingNotice struct {
	DoctorName   string
	SurgeryTitle string
	Day          string
	Rescheduled  bool
}

func (n BookingNotice) Subject() string {
	if n.Rescheduled {
		return fmt.Sprintf("Surgery updated: %s on %s", n.SurgeryTitle, n.Day)
	}
	return fmt.Sprintf("Surgery booked: %s on %s", n.SurgeryTitle, n.Day)
}

func (n BookingNotice) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", n.DoctorName)
	if n.Rescheduled {
		fmt.Fprintf(&b, "The surgery %q you are booked for has been updated.\n", n.SurgeryTitle)
	} else {
		fmt.Fprintf(&b, "You have been booked for the surgery %q.\n", n.SurgeryTitle)
	}
	fmt.Fprintf(&b, "Date: %s\n", n.Day)
	return b.String()
}

// SMTPService sends plain text mail through an SMTP relay.
type SMTPService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) *SMTPService {
	return &SMTPService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogService writes mails to the log instead of sending them. Used when no
// SMTP host is configured.
type LogService struct {
	logger *logger.Logger
}

func NewLogService(log *logger.Logger) *LogService {
	return &LogService{logger: log}
}

func (s *LogService) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("mail not sent, smtp disabled", "to", to, "subject", subject)
	return nil
}

// New picks the SMTP sender when a host is configured.
func New(cfg config.SMTPConfig, log *logger.Logger) Service {
	if cfg.Enabled() {
		return NewSMTPService(cfg)
	}
	return NewLogService(log)
}
