// Package email delivers verification codes. SMTP via go-mail in real
// deployments; an echo sender that only logs the code for dev and tests.
package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/wildrydes/dispatch/internal/observability/logger"
)

// Sender delivers one message.
type Sender interface {
	Send(to, subject, textBody string) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func (s *SMTPSender) Send(to, subject, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send to %s: %w", to, err)
	}
	return nil
}

// EchoSender logs instead of sending. Dev/test only; never enabled in prod.
type EchoSender struct{}

func (EchoSender) Send(to, subject, textBody string) error {
	logger.Named("email").Info("echo send",
		logger.Email(to),
	)
	fmt.Printf("EMAIL to=%s subject=%q\n%s\n", to, subject, textBody)
	return nil
}
