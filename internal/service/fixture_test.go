package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/events"
	"github.com/peoplehub/hr-identity/internal/observability"
	"github.com/peoplehub/hr-identity/internal/repository/memory"
)

const testPassword = "Sup3r-secret"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *recordingMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *recordingMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

type stubThrottle struct {
	allow bool
	err   error
}

func (s stubThrottle) Allow(context.Context, string) (bool, error) { return s.allow, s.err }

type fixture struct {
	clock    *testClock
	store    *memory.Store
	tokens   *auth.TokenManager
	sessions *SessionService
	resets   *PasswordResetService
	auth     *AuthService
	mailer   *recordingMailer
	notify   *NotificationService
	employee domain.Account
	inactive domain.Account
}

func newFixture(t *testing.T, rotation bool) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	security := observability.NewSecurityLogger(nil)
	dispatcher := events.NewInMemoryDispatcher()
	mailer := &recordingMailer{}
	notify := NewNotificationService(dispatcher, mailer, zapNop(), notificationConfig())
	notify.RegisterHandlers()

	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	employee := domain.Account{
		Subject:      domain.Subject{ID: "0b6c1c4e-1111-4e6a-9c55-1f0e2b3c4d5e", Type: domain.SubjectTypeEmployee, Role: domain.RoleHR, Email: "hana@example.com"},
		Name:         "Hana <b>Ito</b>",
		PasswordHash: hash,
		Active:       true,
	}
	inactive := domain.Account{
		Subject:      domain.Subject{ID: "0b6c1c4e-2222-4e6a-9c55-1f0e2b3c4d5e", Type: domain.SubjectTypeCustomer, Role: domain.RoleCustomer, Email: "gone@example.com"},
		Name:         "Gone",
		PasswordHash: hash,
		Active:       false,
	}
	store.AddAccount(employee)
	store.AddAccount(inactive)

	tokens := auth.NewTokenManager("test-secret", 15*time.Minute).WithClock(clock.Now)
	sessions := NewSessionService(store, nil, SessionConfig{TTL: 24 * time.Hour, Rotation: rotation}, dispatcher, security, nil).
		WithClock(clock.Now)

	cipher, err := auth.NewResetCipher("reset-key", nil)
	require.NoError(t, err)
	resets := NewPasswordResetService(PasswordResetConfig{BcryptCost: bcrypt.MinCost}, PasswordResetDependencies{
		Store:      store,
		Sessions:   sessions,
		Cipher:     cipher,
		Dispatcher: dispatcher,
		Security:   security,
	}).WithClock(clock.Now)

	authSvc := NewAuthService(AuthDependencies{
		Store:      store,
		Tokens:     tokens,
		Sessions:   sessions,
		Security:   security,
		BcryptCost: bcrypt.MinCost,
	})

	return &fixture{
		clock:    clock,
		store:    store,
		tokens:   tokens,
		sessions: sessions,
		resets:   resets,
		auth:     authSvc,
		mailer:   mailer,
		notify:   notify,
		employee: employee,
		inactive: inactive,
	}
}
