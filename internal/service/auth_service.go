package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/observability"
	"github.com/peoplehub/hr-identity/internal/repository"
)

// LogoutResult is returned by Logout.
type LogoutResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService coordinates login, refresh and logout.
type AuthService struct {
	store          repository.Store
	tokens         *auth.TokenManager
	sessions       *SessionService
	security       *observability.SecurityLogger
	logger         *zap.Logger
	storageTimeout time.Duration
	// dummyHash is compared against for unknown emails so both paths pay
	// for one bcrypt comparison.
	dummyHash string
}

// AuthDependencies groups collaborators of AuthService.
type AuthDependencies struct {
	Store          repository.Store
	Tokens         *auth.TokenManager
	Sessions       *SessionService
	Security       *observability.SecurityLogger
	Logger         *zap.Logger
	StorageTimeout time.Duration
	BcryptCost     int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	dummy, err := auth.HashPassword("unknown-account", deps.BcryptCost)
	if err != nil {
		deps.Logger.Warn("dummy hash", zap.Error(err))
	}
	return &AuthService{
		dummyHash:      dummy,
		store:          deps.Store,
		tokens:         deps.Tokens,
		sessions:       deps.Sessions,
		security:       deps.Security,
		logger:         deps.Logger,
		storageTimeout: deps.StorageTimeout,
	}
}

// Login checks the password and opens a refresh session.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.SessionMeta) (_ *domain.TokenPair, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer func() {
		observability.RecordOperation("login", outcome(err))
		endSpan(span, err)
	}()

	sctx, cancel := withTimeout(ctx, s.storageTimeout)
	account, err := s.store.Accounts().FindByEmail(sctx, normalizeEmail(email))
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = auth.ComparePassword(s.dummyHash, password)
			s.security.Event(observability.SeverityLow, "login_failed", zap.String("reason", "unknown_account"))
			return nil, domain.ErrInvalidCredentials
		}
		s.security.Event(observability.SeverityCritical, "login_lookup_failed", zap.Error(err))
		return nil, storageError("find account", err)
	}

	if !account.Active {
		s.security.Event(observability.SeverityLow, "login_failed",
			zap.String("reason", "inactive"),
			zap.String("subject_id", account.Subject.ID))
		return nil, domain.ErrAccountInactive
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.security.Event(observability.SeverityLow, "login_failed",
			zap.String("reason", "bad_password"),
			zap.String("subject_id", account.Subject.ID))
		return nil, domain.ErrInvalidCredentials
	}

	raw, session, err := s.sessions.Open(ctx, account.Subject, meta)
	if err != nil {
		return nil, err
	}
	access, accessExp, err := s.tokens.Issue(account.Subject, 0)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded",
		zap.String("subject_id", account.Subject.ID),
		zap.String("email", account.Subject.Email),
		zap.String("session_id", session.ID))

	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: session.ExpiresAt,
		SessionID:        session.ID,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation on,
// the refresh token is replaced as well.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, meta domain.SessionMeta) (_ *domain.TokenPair, err error) {
	ctx, span := startSpan(ctx, "AuthService.Refresh")
	defer func() {
		observability.RecordOperation("refresh", outcome(err))
		endSpan(span, err)
	}()

	var (
		session    *domain.Session
		refreshRaw = rawRefresh
	)
	if s.sessions.Rotation() {
		refreshRaw, session, err = s.sessions.RotateSession(ctx, rawRefresh)
	} else {
		session, err = s.sessions.ValidateSession(ctx, rawRefresh)
	}
	if err != nil {
		return nil, err
	}

	sctx, cancel := withTimeout(ctx, s.storageTimeout)
	account, err := s.store.Accounts().FindByID(sctx, session.SubjectType, session.SubjectID)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.sessions.RevokeSession(ctx, session.ID)
			return nil, domain.ErrSessionInvalid
		}
		return nil, storageError("find account", err)
	}
	if !account.Active {
		_ = s.sessions.RevokeSession(ctx, session.ID)
		s.security.Event(observability.SeverityLow, "refresh_inactive_account",
			zap.String("subject_id", account.Subject.ID))
		return nil, domain.ErrAccountInactive
	}

	access, accessExp, err := s.tokens.Issue(account.Subject, 0)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session refreshed",
		zap.String("session_id", session.ID),
		zap.String("user_agent", meta.UserAgent))

	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshRaw,
		RefreshExpiresAt: session.ExpiresAt,
		SessionID:        session.ID,
	}, nil
}

// Logout revokes the session behind rawRefresh, if any, and returns an
// access token that is already expired so clients overwrite cached copies.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) (_ *LogoutResult, err error) {
	ctx, span := startSpan(ctx, "AuthService.Logout")
	defer func() {
		observability.RecordOperation("logout", outcome(err))
		endSpan(span, err)
	}()

	session, err := s.sessions.RevokeByToken(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}

	subject := domain.Subject{ID: "anonymous", Type: domain.SubjectTypeEmployee, Role: domain.RoleEmployee}
	if session != nil {
		subject.ID = session.SubjectID
		subject.Type = session.SubjectType
		if session.SubjectType == domain.SubjectTypeCustomer {
			subject.Role = domain.RoleCustomer
		}
	}

	token, exp, err := s.tokens.IssueExpired(subject)
	if err != nil {
		return nil, err
	}
	return &LogoutResult{AccessToken: token, ExpiresAt: exp}, nil
}

// Me returns the account behind an authenticated subject.
func (s *AuthService) Me(ctx context.Context, subject domain.Subject) (*domain.Account, error) {
	sctx, cancel := withTimeout(ctx, s.storageTimeout)
	defer cancel()

	account, err := s.store.Accounts().FindByID(sctx, subject.Type, subject.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("find account", err)
	}
	return account, nil
}
