package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, mailer)
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		To:      []string{"test@example.com"},
		Subject: "Test",
		Body:    "Hello",
	})
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, NewDisabledMailer().Send(context.Background(), Message{}), ErrSMTPDisabled)
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
		UseTLS:  true,
	})
	require.NoError(t, err)

	sm, ok := mailer.(*smtpMailer)
	require.True(t, ok)
	require.Equal(t, 10*time.Second, sm.cfg.Timeout)
}

func TestSMTPMailerValidatesEnvelope(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: []string{"   ", "\t"}})
	require.ErrorContains(t, err, "at least one recipient")

	err = mailer.Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorContains(t, err, "sender address is required")

	err = mailer.Send(context.Background(), Message{From: "invalid-from", To: []string{"user@example.com"}})
	require.ErrorContains(t, err, "invalid from address")

	err = mailer.Send(context.Background(), Message{From: "a@example.com", To: []string{"user@example.com", "bad-address"}})
	require.ErrorContains(t, err, "invalid recipient address")
}

func TestSMTPMailerDelivers(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := &smtpMailer{
		cfg: SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"},
		dialFn: func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
			server, clientConn := net.Pipe()
			t.Cleanup(func() { _ = server.Close() })
			return clientConn, client, nil
		},
		authFn: func(smtpClient, SMTPSettings) error { return nil },
	}

	err := mailer.Send(context.Background(), Message{
		To:      []string{"invitee@example.com", "INVITEE@example.com"},
		Subject: "Invitation",
		Body:    "Follow the link",
	})
	require.NoError(t, err)
	require.Equal(t, "no-reply@example.com", client.from)
	require.Equal(t, []string{"invitee@example.com"}, client.rcpts)
	require.Contains(t, client.data.String(), "Follow the link")
	require.True(t, client.quit)
}

func TestSMTPMailerPropagatesRcptFailure(t *testing.T) {
	client := &fakeSMTPClient{rcptErr: errors.New("550 mailbox unavailable")}
	mailer := &smtpMailer{
		cfg: SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"},
		dialFn: func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
			server, clientConn := net.Pipe()
			t.Cleanup(func() { _ = server.Close() })
			return clientConn, client, nil
		},
		authFn: func(smtpClient, SMTPSettings) error { return nil },
	}

	err := mailer.Send(context.Background(), Message{To: []string{"x@example.com"}, Body: "b"})
	require.ErrorContains(t, err, "550 mailbox unavailable")
}

func TestFormatMessagePlain(t *testing.T) {
	content, err := formatMessage("from@example.com", []string{"to@example.com"}, Message{Subject: "Subject\r\nBreak", Body: "Body"})
	require.NoError(t, err)

	text := string(content)
	require.Contains(t, text, "From: from@example.com")
	require.Contains(t, text, "Subject: Subject  Break")
	require.Contains(t, text, "Content-Type: text/plain; charset=UTF-8")
	require.True(t, strings.HasSuffix(text, "Body"))
}

func TestFormatMessageWithAttachment(t *testing.T) {
	content, err := formatMessage("from@example.com", []string{"to@example.com"}, Message{
		Subject: "Report",
		Body:    "See attached",
		Attachments: []Attachment{{
			Filename:    "report.pdf",
			ContentType: "application/pdf",
			Data:        bytes.Repeat([]byte("%PDF"), 40),
		}},
	})
	require.NoError(t, err)

	text := string(content)
	require.Contains(t, text, "multipart/mixed")
	require.Contains(t, text, "See attached")
	require.Contains(t, text, `attachment; filename=report.pdf`)
	require.Contains(t, text, "Content-Transfer-Encoding: base64")
	for _, line := range strings.Split(text, "\r\n") {
		require.LessOrEqual(t, len(line), 998)
	}
}

func TestUniqueAddresses(t *testing.T) {
	addresses := []string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "BOB@example.com"}
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, uniqueAddresses(addresses))
}

func TestNewSendGridMailerRequiresKey(t *testing.T) {
	_, err := NewSendGridMailer(SendGridSettings{})
	require.ErrorContains(t, err, "api key is required")
}

func TestSendGridMailerBuildsMessage(t *testing.T) {
	client := &fakeSendGrid{resp: &rest.Response{StatusCode: 202}}
	mailer := &sendGridMailer{
		cfg:    SendGridSettings{APIKey: "key", From: "no-reply@example.com", FromName: "Picketer"},
		client: client,
	}

	err := mailer.Send(context.Background(), Message{
		To:          []string{"admin@example.com", "ops@example.com"},
		Subject:     "Report",
		Body:        "Body",
		Attachments: []Attachment{{Filename: "r.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)
	require.NotNil(t, client.sent)
	require.Equal(t, "Picketer", client.sent.From.Name)
	require.Len(t, client.sent.Personalizations, 1)
	require.Len(t, client.sent.Personalizations[0].To, 2)
	require.Len(t, client.sent.Attachments, 1)
	require.Equal(t, "r.pdf", client.sent.Attachments[0].Filename)
}

func TestSendGridMailerStatusFailure(t *testing.T) {
	mailer := &sendGridMailer{
		cfg:    SendGridSettings{APIKey: "key", From: "no-reply@example.com"},
		client: &fakeSendGrid{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}},
	}

	err := mailer.Send(context.Background(), Message{To: []string{"a@example.com"}, Body: "b"})
	require.ErrorContains(t, err, "status=401")
}

type fakeSendGrid struct {
	resp *rest.Response
	err  error
	sent *sgmail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	f.sent = email
	return f.resp, f.err
}

type fakeSMTPClient struct {
	from    string
	rcpts   []string
	data    bytes.Buffer
	quit    bool
	rcptErr error
}

func (f *fakeSMTPClient) Mail(from string) error { f.from = from; return nil }
func (f *fakeSMTPClient) Rcpt(to string) error {
	if f.rcptErr != nil {
		return f.rcptErr
	}
	f.rcpts = append(f.rcpts, to)
	return nil
}
func (f *fakeSMTPClient) Data() (io.WriteCloser, error) { return nopWriteCloser{&f.data}, nil }
func (f *fakeSMTPClient) Quit() error                   { f.quit = true; return nil }
func (f *fakeSMTPClient) Close() error                  { return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error    { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error          { return nil }
func (f *fakeSMTPClient) Extension(string) (bool, string) {
	return false, ""
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
