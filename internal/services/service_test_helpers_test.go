package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/charlesng35/picketer/internal/database/testutil"
	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/internal/storage"
	"github.com/charlesng35/picketer/pkg/crypto"
	"github.com/charlesng35/picketer/pkg/mail"
	"github.com/charlesng35/picketer/pkg/push"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

// testHasher keeps bcrypt fast in tests.
func testHasher() *crypto.PasswordHasher {
	return crypto.NewPasswordHasher(4)
}

type stubTokens struct{}

func (stubTokens) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("missing user id")
	}
	return "token-for-" + userID, nil
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []string
	failures map[string]error
}

func (s *recordingSender) Send(_ context.Context, sub push.Subscription, _ push.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[sub.Endpoint]; ok {
		return err
	}
	s.sent = append(s.sent, sub.Endpoint)
	return nil
}

func (s *recordingSender) endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type broadcastCall struct {
	name    string
	payload push.Payload
	roles   []string
}

type recordingBroadcaster struct {
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(name string, payload push.Payload, roles ...string) {
	b.calls = append(b.calls, broadcastCall{name: name, payload: payload, roles: roles})
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  int
	puts    int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (s *memoryStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.failOn > 0 && s.puts == s.failOn {
		return storage.Object{}, errors.New("disk full")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Object{}, err
	}
	s.objects[key] = data
	return storage.Object{Key: key, URL: "/public/" + key}, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	hashed, err := testHasher().Hash("secret123")
	require.NoError(t, err)
	user := &models.User{
		Name:       "Ivan",
		Surname:    "Petrov",
		Patronymic: "Sergeevich",
		Email:      email,
		Password:   hashed,
		Role:       role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func imageUpload(name string) Upload {
	data := []byte("\x89PNG fake image " + name)
	return Upload{Filename: name, ContentType: "image/png", Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
