package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrDisabled signals that outbound email is switched off via configuration.
var ErrDisabled = errors.New("mail: delivery disabled")

// ErrSMTPDisabled is kept for callers that check the SMTP driver specifically.
var ErrSMTPDisabled = ErrDisabled

// Attachment is a file carried alongside an outbound email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message represents an outbound email.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	HTML        string
	Attachments []Attachment
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg Message) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type disabledMailer struct{}

func (disabledMailer) Send(context.Context, Message) error { return ErrDisabled }

// NewDisabledMailer returns a mailer that refuses every message.
func NewDisabledMailer() Mailer {
	return disabledMailer{}
}

// envelope normalises and validates sender and recipients shared by every driver.
func envelope(msg Message, defaultFrom string) (string, []string, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return "", nil, errors.New("mail: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = defaultFrom
	}
	if from == "" {
		return "", nil, errors.New("mail: sender address is required")
	}

	if _, err := mail.ParseAddress(from); err != nil {
		return "", nil, fmt.Errorf("mail: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return "", nil, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}

	return from, recipients, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
