package mailer

import (
	"strings"

	"gopkg.in/gomail.v2"

	"coldreach/pkg/config"
	"coldreach/pkg/logger"
)

// Mailer delivers a single email. Send reports failure as false and never
// panics across the boundary, so the dispatch loop can treat the outcome as
// a plain boolean.
type Mailer interface {
	Send(to, subject, body, bcc string, context map[string]string) bool
}

// SMTPMailer sends mail through an SMTP relay with STARTTLS
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer from SMTP configuration
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send substitutes the context into subject and body and delivers the
// message. Returns true on success, false on any failure.
func (m *SMTPMailer) Send(to, subject, body, bcc string, context map[string]string) bool {
	if context != nil {
		subject = Render(subject, context)
		body = Render(body, context)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	if bcc != "" {
		msg.SetHeader("Bcc", bcc)
	}
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		logger.WithError(err).WithField("to", to).Errorf("failed to send email")
		return false
	}
	return true
}

// Render substitutes {{key}} tokens with their context values. Unknown
// tokens are left in place; missing optional fields arrive as empty strings.
func Render(text string, context map[string]string) string {
	if len(context) == 0 {
		return text
	}
	pairs := make([]string, 0, len(context)*2)
	for key, value := range context {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
