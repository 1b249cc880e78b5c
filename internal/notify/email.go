// Package notify delivers patient-facing email, currently the new patient
// intake form.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

const intakeSubject = "New Patient Intake Form - %s"

const intakeBody = `Dear %s,

Welcome to HealthCare Plus Medical Center! 🏥

As a new patient, please find your intake form attached. To ensure a smooth visit:

✅ Complete the attached form
✅ Bring it to your appointment or submit it online
✅ Arrive 15 minutes early for check-in
✅ Bring a valid ID and insurance card

If you have any questions, please call us at (555) 123-4567.

We look forward to seeing you!

Best regards,
HealthCare Plus Medical Center Team

---
This email was sent automatically by our AI scheduling assistant.
`

// SMTPSender sends intake forms over SMTP. FormPath, when set, is attached
// to the message.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	formPath string
	logger   *zap.Logger
}

func NewSMTPSender(host string, port int, user, password, from, formPath string, logger *zap.Logger) *SMTPSender {
	if from == "" {
		from = user
	}
	return &SMTPSender{
		dialer:   gomail.NewDialer(host, port, user, password),
		from:     from,
		formPath: formPath,
		logger:   logger,
	}
}

func (s *SMTPSender) SendIntakeForm(ctx context.Context, email, patientName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf(intakeSubject, patientName))
	msg.SetBody("text/plain", fmt.Sprintf(intakeBody, patientName))
	if s.formPath != "" {
		msg.Attach(s.formPath)
	}

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send intake form to %s: %w", email, err)
	}

	s.logger.Info("intake form sent", zap.String("email", email))
	return nil
}

// SimulatedSender logs instead of sending. Used when SMTP credentials are
// absent and by cmd/simulate.
type SimulatedSender struct {
	logger *zap.Logger
}

func NewSimulatedSender(logger *zap.Logger) *SimulatedSender {
	return &SimulatedSender{logger: logger}
}

func (s *SimulatedSender) SendIntakeForm(_ context.Context, email, patientName string) error {
	s.logger.Info("intake form sent (simulated)",
		zap.String("email", email),
		zap.String("patient", patientName),
		zap.String("subject", fmt.Sprintf(intakeSubject, patientName)))
	return nil
}
