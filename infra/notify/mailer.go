// Package notify delivers operator alerts over SMTP. Reconciliation
// mismatches are accepted and flagged rather than rejected, so the alert
// mail is the operator's cue to investigate an order by hand.
package notify

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/infra/logger"
)

type MailerConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	ToAddresses []string
}

// Mailer sends alert mails through an SMTP relay. It satisfies the
// provider.AlertSink interface.
type Mailer struct {
	config MailerConfig
	dialer *gomail.Dialer
}

func NewMailer(config MailerConfig) *Mailer {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &Mailer{
		config: config,
		dialer: dialer,
	}
}

// NewMailerFromAppConfig builds a Mailer from the application configuration.
// Returns nil when no SMTP host is configured, which disables alerting.
func NewMailerFromAppConfig(cfg *config.AppConfig) *Mailer {
	if cfg.SMTPHost == "" || cfg.AlertTo == "" {
		return nil
	}

	return NewMailer(MailerConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPass,
		FromAddress: cfg.AlertFrom,
		ToAddresses: strings.Split(cfg.AlertTo, ","),
	})
}

// Alert sends an alert mail to the configured operator addresses.
func (m *Mailer) Alert(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.FromAddress)
	msg.SetHeader("To", m.config.ToAddresses...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		logger.Error("Failed to send alert mail", err, logger.LogContext{
			Fields: map[string]any{"subject": subject},
		})
		return fmt.Errorf("failed to send alert mail: %w", err)
	}

	return nil
}
