package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/peoplehub/hr-identity/internal/api/http/handlers"
	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/config"
	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/events"
	"github.com/peoplehub/hr-identity/internal/observability"
	"github.com/peoplehub/hr-identity/internal/persistence"
	"github.com/peoplehub/hr-identity/internal/repository/memory"
	"github.com/peoplehub/hr-identity/internal/service"
)

const password = "Corr3ct-horse"

type capturedMail struct {
	sent []service.Email
}

func (m *capturedMail) Send(_ context.Context, e service.Email) error {
	m.sent = append(m.sent, e)
	return nil
}

type testServer struct {
	app   *fiber.App
	store *memory.Store
	mail  *capturedMail
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	logger := zap.NewNop()
	security := observability.NewSecurityLogger(logger)
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	mail := &capturedMail{}

	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	store.AddAccount(domain.Account{
		Subject:      domain.Subject{ID: "11111111-1111-4111-8111-111111111111", Type: domain.SubjectTypeEmployee, Role: domain.RoleEmployee, Email: "emp@example.com"},
		Name:         "Emp",
		PasswordHash: hash,
		Active:       true,
	})
	store.AddAccount(domain.Account{
		Subject:      domain.Subject{ID: "22222222-2222-4222-8222-222222222222", Type: domain.SubjectTypeEmployee, Role: domain.RoleHR, Email: "hr@example.com"},
		Name:         "HR",
		PasswordHash: hash,
		Active:       true,
	})
	store.AddAccount(domain.Account{
		Subject:      domain.Subject{ID: "33333333-3333-4333-8333-333333333333", Type: domain.SubjectTypeCustomer, Role: domain.RoleCustomer, Email: "off@example.com"},
		Name:         "Off",
		PasswordHash: hash,
		Active:       false,
	})

	tokens := auth.NewTokenManager("http-secret", 15*time.Minute)
	sessions := service.NewSessionService(store, nil, service.SessionConfig{TTL: time.Hour, Rotation: true}, dispatcher, security, logger)
	cipher, err := auth.NewResetCipher("http-reset", nil)
	require.NoError(t, err)
	resets := service.NewPasswordResetService(service.PasswordResetConfig{BcryptCost: bcrypt.MinCost}, service.PasswordResetDependencies{
		Store: store, Sessions: sessions, Cipher: cipher, Dispatcher: dispatcher, Security: security, Logger: logger,
	})
	authSvc := service.NewAuthService(service.AuthDependencies{
		Store: store, Tokens: tokens, Sessions: sessions, Security: security, Logger: logger, BcryptCost: bcrypt.MinCost,
	})
	service.NewNotificationService(dispatcher, mail, logger, config.NotificationConfig{FrontendBaseURL: "https://app.test"}).RegisterHandlers()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:        handlers.NewHealthHandler("hr-identity", "test", &persistence.Postgres{}, nil),
		Auth:          handlers.NewAuthHandler(authSvc),
		Password:      handlers.NewPasswordHandler(resets),
		Sessions:      handlers.NewSessionsHandler(sessions),
		Gate:          auth.NewGate(tokens, security),
		AuthRateLimit: rateLimit,
	})
	return &testServer{app: app, store: store, mail: mail}
}

func (s *testServer) do(t *testing.T, method, path string, body any, bearer string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func login(t *testing.T, s *testServer, email string) map[string]any {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/login", fiber.Map{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, status, body)
	return data(body)
}

func TestLoginMeRefreshLogout(t *testing.T) {
	s := newTestServer(t, 0)

	tokens := login(t, s, "emp@example.com")
	access := tokens["access_token"].(string)
	refresh := tokens["refresh_token"].(string)

	status, body := s.do(t, http.MethodGet, "/auth/me", nil, access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "emp@example.com", data(body)["email"])

	status, body = s.do(t, http.MethodPost, "/auth/refresh", fiber.Map{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, status)
	rotated := data(body)["refresh_token"].(string)
	assert.NotEqual(t, refresh, rotated)

	status, body = s.do(t, http.MethodPost, "/auth/logout", fiber.Map{"refresh_token": rotated}, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, data(body)["access_token"])

	status, body = s.do(t, http.MethodPost, "/auth/refresh", fiber.Map{"refresh_token": rotated}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "SESSION_INVALID", errorCode(body))
}

func TestMeRequiresToken(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(body))

	status, body = s.do(t, http.MethodGet, "/auth/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(body))
}

func TestLoginValidationAndInactive(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodPost, "/auth/login", fiber.Map{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, http.MethodPost, "/auth/login", fiber.Map{"email": "off@example.com", "password": password}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_INACTIVE", errorCode(body))
}

func TestForgotPasswordIsGeneric(t *testing.T) {
	s := newTestServer(t, 0)

	statusKnown, bodyKnown := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "emp@example.com"}, "")
	statusUnknown, bodyUnknown := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "nobody@example.com"}, "")

	assert.Equal(t, http.StatusAccepted, statusKnown)
	assert.Equal(t, statusKnown, statusUnknown)
	assert.Equal(t, bodyKnown, bodyUnknown)
	assert.Len(t, s.mail.sent, 1)

	status, body := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "off@example.com"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_INACTIVE", errorCode(body))
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t, 0)

	status, _ := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "emp@example.com"}, "")
	require.Equal(t, http.StatusAccepted, status)

	req, err := s.store.Resets().GetByEmail(context.Background(), "emp@example.com")
	require.NoError(t, err)

	status, body := s.do(t, http.MethodGet, "/auth/password/reset/"+req.Token, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(body)["valid"])

	status, _ = s.do(t, http.MethodPost, "/auth/password/reset", fiber.Map{"token": req.Token, "new_password": "Brand-new-pass1"}, "")
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/auth/password/reset/"+req.Token, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "RESET_TOKEN_INVALID", errorCode(body))

	status, _ = s.do(t, http.MethodPost, "/auth/login", fiber.Map{"email": "emp@example.com", "password": "Brand-new-pass1"}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminSessionRevocation(t *testing.T) {
	s := newTestServer(t, 0)

	emp := login(t, s, "emp@example.com")
	hr := login(t, s, "hr@example.com")
	sessionID := emp["session_id"].(string)

	status, _ := s.do(t, http.MethodDelete, "/auth/sessions/"+sessionID, nil, emp["access_token"].(string))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodDelete, "/auth/sessions/"+sessionID, nil, hr["access_token"].(string))
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodPost, "/auth/refresh", fiber.Map{"refresh_token": emp["refresh_token"]}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodDelete, "/auth/sessions/not-a-uuid", nil, hr["access_token"].(string))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "nobody@example.com"}, "")
		require.Equal(t, http.StatusAccepted, status)
	}
	status, body := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))
}

func TestHealthLiveAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, _ = s.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestResetRejectsPasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t, 0)

	status, _ := s.do(t, http.MethodPost, "/auth/password/forgot", fiber.Map{"email": "emp@example.com"}, "")
	require.Equal(t, http.StatusAccepted, status)
	req, err := s.store.Resets().GetByEmail(context.Background(), "emp@example.com")
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/auth/password/reset", fiber.Map{"token": req.Token, "new_password": strings.Repeat("é", 40)}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}
