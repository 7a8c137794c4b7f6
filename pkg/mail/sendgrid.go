package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSettings configure delivery through the SendGrid v3 API.
type SendGridSettings struct {
	APIKey   string
	From     string
	FromName string
}

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type sendGridMailer struct {
	cfg    SendGridSettings
	client sendGridClient
}

// NewSendGridMailer returns a Mailer backed by the SendGrid HTTP API.
func NewSendGridMailer(cfg SendGridSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid: api key is required")
	}
	return &sendGridMailer{
		cfg:    cfg,
		client: sendgrid.NewSendClient(cfg.APIKey),
	}, nil
}

func (m *sendGridMailer) Send(ctx context.Context, msg Message) error {
	from, recipients, err := envelope(msg, m.cfg.From)
	if err != nil {
		return err
	}

	message := buildSendGridMessage(m.cfg.FromName, from, recipients, msg)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}

func buildSendGridMessage(fromName, from string, recipients []string, msg Message) *sgmail.SGMailV3 {
	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(fromName, from))
	message.Subject = escapeHeader(msg.Subject)

	personalization := sgmail.NewPersonalization()
	for _, rcpt := range recipients {
		personalization.AddTos(sgmail.NewEmail("", rcpt))
	}
	message.AddPersonalizations(personalization)

	message.AddContent(sgmail.NewContent("text/plain", msg.Body))
	if msg.HTML != "" {
		message.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, att := range msg.Attachments {
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Data))
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		message.AddAttachment(a)
	}
	return message
}
