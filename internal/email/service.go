package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

type Service interface {
	SendStatusUpdate(ctx context.Context, change model.StatusChangedPayload) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer  sender
	from    string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewService returns an SMTP sender, or a logging no-op when email is disabled.
func NewService(cfg config.EmailConfig, log *logger.Logger, m *metrics.Metrics) Service {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled {
		return &disabledService{logger: log}
	}
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		logger:  log,
		metrics: m,
	}
}

// statusMessages covers the statuses a patient is told about.
var statusMessages = map[model.Status]string{
	model.StatusConfirmed:        "Your telehealth appointment on %s at %s is confirmed.",
	model.StatusIntake:           "You have been moved to intake. A member of our team will be with you shortly.",
	model.StatusReadyForProvider: "You are next in line. Your provider will join the call soon.",
	model.StatusProvider:         "Your provider has started the call.",
	model.StatusDischarged:       "Your visit is complete. Thank you for choosing us.",
	model.StatusCancelled:        "Your appointment on %s at %s has been cancelled.",
}

func statusBody(change model.StatusChangedPayload) (string, bool) {
	tmpl, ok := statusMessages[change.To]
	if !ok {
		return "", false
	}
	if strings.Contains(tmpl, "%s") {
		tmpl = fmt.Sprintf(tmpl, change.AppointmentDate, change.AppointmentTime)
	}
	greeting := "Hello"
	if change.PatientName != "" {
		greeting += " " + change.PatientName
	}
	return greeting + ",\n\n" + tmpl + "\n", true
}

func (s *smtpService) SendStatusUpdate(ctx context.Context, change model.StatusChangedPayload) error {
	if change.PatientEmail == "" || change.From == change.To {
		return nil
	}
	body, ok := statusBody(change)
	if !ok {
		return nil
	}
	subject := "Appointment update: " + model.GetStatusLabel(string(change.To))
	return s.SendCustom(ctx, change.PatientEmail, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.count("error")
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.count("sent")
	s.logger.Debug("Email sent", "subject", subject)
	return nil
}

func (s *smtpService) count(status string) {
	if s.metrics != nil {
		s.metrics.EmailsSent.WithLabelValues(status).Inc()
	}
}

type disabledService struct {
	logger *logger.Logger
}

func (d *disabledService) SendStatusUpdate(ctx context.Context, change model.StatusChangedPayload) error {
	d.logger.Debug("Email disabled, skipping status update", "booking_id", change.BookingID.String())
	return nil
}

func (d *disabledService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	d.logger.Debug("Email disabled, skipping message", "subject", subject)
	return nil
}
