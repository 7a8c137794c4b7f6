package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/api"
	"github.com/charlesng35/picketer/internal/app"
	"github.com/charlesng35/picketer/internal/auth"
	"github.com/charlesng35/picketer/internal/cache"
	sharedtestutil "github.com/charlesng35/picketer/internal/database/testutil"
	"github.com/charlesng35/picketer/internal/middleware"
	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/internal/storage"
	"github.com/charlesng35/picketer/pkg/crypto"
	"github.com/charlesng35/picketer/pkg/mail"
	"github.com/charlesng35/picketer/pkg/push"
	"github.com/charlesng35/picketer/pkg/response"
)

// DefaultPassword is the password CreateUser assigns.
const DefaultPassword = "secret123"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T       *testing.T
	DB      *gorm.DB
	Router  *gin.Engine
	JWT     *auth.JWTService
	Config  *app.Config
	Mail    *MailRecorder
	Push    *PushRecorder
	Storage *storage.LocalStorage
}

// MailRecorder captures outbound mail. Setting Err makes every send fail.
type MailRecorder struct {
	mu       sync.Mutex
	Messages []mail.Message
	Err      error
}

func (m *MailRecorder) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Sent returns a copy of the captured messages.
func (m *MailRecorder) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.Messages...)
}

// PushRecorder captures push notifications by endpoint.
type PushRecorder struct {
	mu        sync.Mutex
	Delivered map[string][]push.Payload
}

func (p *PushRecorder) Send(_ context.Context, sub push.Subscription, payload push.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Delivered == nil {
		p.Delivered = map[string][]push.Payload{}
	}
	p.Delivered[sub.Endpoint] = append(p.Delivered[sub.Endpoint], payload)
	return nil
}

// For returns the payloads delivered to endpoint.
func (p *PushRecorder) For(endpoint string) []push.Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]push.Payload(nil), p.Delivered[endpoint]...)
}

// NewEnv provisions a fresh handler test environment. Background tasks run
// inline so their effects are visible when the request returns. Each
// configure func may adjust the configuration before the router is built.
func NewEnv(t *testing.T, configure ...func(*app.Config)) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{
			MaxUploadBytes: 8 << 20,
			CORS:           app.CORSConfig{AllowedOrigins: []string{"*"}},
			RateLimit:      app.RateLimitConfig{Requests: 1000, Window: time.Minute},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Invitations: app.InvitationConfig{
			LinkBaseURL: "https://picket.example.com/register",
			TTL:         24 * time.Hour,
		},
		Monitoring: app.MonitoringConfig{
			Health: app.HealthConfig{Enabled: true},
		},
	}

	for _, fn := range configure {
		fn(cfg)
	}

	jwtSvc, err := auth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir(), "/public")
	require.NoError(t, err)

	env := &Env{
		T:       t,
		DB:      db,
		JWT:     jwtSvc,
		Config:  cfg,
		Mail:    &MailRecorder{},
		Push:    &PushRecorder{},
		Storage: store,
	}

	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:            db,
		JWT:           jwtSvc,
		Hasher:        crypto.NewPasswordHasher(4),
		Mailer:        env.Mail,
		Storage:       store,
		Push:          env.Push,
		PushPublicKey: "BTestPublicKey",
		RateStore:     cache.NewMemoryStore(),
	})
	require.NoError(t, err)
	env.Router = router

	return env
}

// CreateUser inserts an account with DefaultPassword and returns it with a session token.
func (e *Env) CreateUser(email, role string) (*models.User, string) {
	e.T.Helper()

	hashed, err := crypto.NewPasswordHasher(4).Hash(DefaultPassword)
	require.NoError(e.T, err)

	user := &models.User{
		Name:       "Ivan",
		Surname:    "Petrov",
		Patronymic: "Sergeevich",
		Email:      email,
		Password:   hashed,
		Role:       role,
	}
	require.NoError(e.T, e.DB.Create(user).Error)

	token, err := e.JWT.Issue(user.ID)
	require.NoError(e.T, err)
	return user, token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.Do(req, token)
}

// Do serves req, authenticating with token through the legacy header when set.
func (e *Env) Do(req *http.Request, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	if token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set(middleware.TokenHeader, token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// FilePart is a file attached to a multipart request.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Multipart builds a multipart/form-data request.
func (e *Env) Multipart(method, path string, fields map[string]string, files []FilePart) *http.Request {
	e.T.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Filename+`"`)
		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		}
		part, err := writer.CreatePart(header)
		require.NoError(e.T, err)
		_, err = part.Write(f.Data)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(method, path, &body)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// InvitationToken extracts the raw token from the most recent invitation email.
func (e *Env) InvitationToken() string {
	e.T.Helper()
	sent := e.Mail.Sent()
	require.NotEmpty(e.T, sent, "no invitation email was sent")

	prefix := e.Config.Invitations.LinkBaseURL + "/"
	for _, line := range strings.Split(sent[len(sent)-1].Body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	e.T.Fatalf("invitation link not found in %q", sent[len(sent)-1].Body)
	return ""
}
