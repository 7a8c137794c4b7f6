package push

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrDisabled is returned when no VAPID key pair is configured.
var ErrDisabled = errors.New("push: delivery disabled")

// ErrSubscriptionGone reports that the push service no longer knows the endpoint.
var ErrSubscriptionGone = errors.New("push: subscription expired or unsubscribed")

// Subscription is a browser push endpoint plus its encryption keys.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Sender delivers a payload to a single subscription.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload Payload) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, sub Subscription, payload Payload) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, sub Subscription, payload Payload) error {
	return f(ctx, sub, payload)
}

// Settings configure VAPID signing for outbound notifications.
type Settings struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        time.Duration
	HTTPClient webpush.HTTPClient
}

// Enabled reports whether a VAPID key pair is present.
func (s Settings) Enabled() bool {
	return strings.TrimSpace(s.PublicKey) != "" && strings.TrimSpace(s.PrivateKey) != ""
}

// WebPushSender signs and encrypts notifications with VAPID.
type WebPushSender struct {
	cfg Settings
}

// NewWebPushSender builds a sender. A missing key pair yields a sender whose
// Send always returns ErrDisabled.
func NewWebPushSender(cfg Settings) *WebPushSender {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &WebPushSender{cfg: cfg}
}

// PublicKey returns the application server key clients subscribe with.
func (s *WebPushSender) PublicKey() string {
	return s.cfg.PublicKey
}

// Send encrypts payload for sub and posts it to the push service.
func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload Payload) error {
	if !s.cfg.Enabled() {
		return ErrDisabled
	}
	if strings.TrimSpace(sub.Endpoint) == "" {
		return errors.New("push: endpoint is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("push: encode payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.cfg.HTTPClient,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push: service responded %d", resp.StatusCode)
	}
	return nil
}

// GenerateKeys returns a fresh VAPID key pair encoded for configuration.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("push: generate vapid keys: %w", err)
	}
	return publicKey, privateKey, nil
}

// PublicKeyFor derives the VAPID public key matching a stored private key.
func PublicKeyFor(privateKey string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(privateKey), "="))
	if err != nil {
		return "", fmt.Errorf("push: decode private key: %w", err)
	}
	key, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return "", fmt.Errorf("push: parse private key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()), nil
}
