package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/picketer/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  strings.EqualFold(c.Driver, "smtp"),
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// SendGridSettings converts EmailConfig to the SendGrid driver settings.
func (c EmailConfig) SendGridSettings() mail.SendGridSettings {
	return mail.SendGridSettings{
		APIKey:   c.SendGrid.APIKey,
		From:     c.From,
		FromName: c.FromName,
	}
}

// NewMailer returns the Mailer selected by Driver. "none" yields a mailer that
// refuses every message with mail.ErrDisabled.
func (c EmailConfig) NewMailer() (mail.Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", "none":
		return mail.NewDisabledMailer(), nil
	case "smtp":
		return mail.NewSMTPMailer(c.SMTPSettings())
	case "sendgrid":
		return mail.NewSendGridMailer(c.SendGridSettings())
	default:
		return nil, fmt.Errorf("email: unknown driver %q", c.Driver)
	}
}
