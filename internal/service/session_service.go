package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/events"
	"github.com/peoplehub/hr-identity/internal/observability"
	"github.com/peoplehub/hr-identity/internal/repository"
)

// RefreshTokenLength is the number of alphanumeric characters in a raw refresh token.
const RefreshTokenLength = 64

const maxUserAgentLen = 512

// SessionConfig tunes the refresh session store.
type SessionConfig struct {
	TTL            time.Duration
	StorageTimeout time.Duration
	Rotation       bool
}

// SessionService manages hashed refresh sessions.
type SessionService struct {
	store      repository.Store
	random     *auth.Generator
	cfg        SessionConfig
	dispatcher events.Dispatcher
	security   *observability.SecurityLogger
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService builds the service.
func NewSessionService(store repository.Store, random *auth.Generator, cfg SessionConfig, dispatcher events.Dispatcher, security *observability.SecurityLogger, logger *zap.Logger) *SessionService {
	if random == nil {
		random = auth.NewGenerator(nil)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:      store,
		random:     random,
		cfg:        cfg,
		dispatcher: dispatcher,
		security:   security,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Rotation reports whether refresh rotates the token.
func (s *SessionService) Rotation() bool {
	return s.cfg.Rotation
}

// Open mints a raw refresh token and persists its session.
func (s *SessionService) Open(ctx context.Context, subject domain.Subject, meta domain.SessionMeta) (string, *domain.Session, error) {
	raw, err := s.random.String(RefreshTokenLength)
	if err != nil {
		s.security.Event(observability.SeverityCritical, "randomness_unavailable", zap.Error(err))
		return "", nil, err
	}
	session, err := s.CreateSession(ctx, subject, raw, meta)
	if err != nil {
		return "", nil, err
	}
	return raw, session, nil
}

// CreateSession stores the SHA-256 of rawToken. The raw token is never persisted.
func (s *SessionService) CreateSession(ctx context.Context, subject domain.Subject, rawToken string, meta domain.SessionMeta) (_ *domain.Session, err error) {
	ctx, span := startSpan(ctx, "SessionService.CreateSession")
	defer func() { endSpan(span, err) }()

	now := s.now().UTC()
	session := &domain.Session{
		ID:          uuid.NewString(),
		SubjectID:   subject.ID,
		SubjectType: subject.Type,
		TokenHash:   auth.HashToken(rawToken),
		UserAgent:   optional(truncate(meta.UserAgent, maxUserAgentLen)),
		IPAddress:   optional(meta.IPAddress),
		ExpiresAt:   now.Add(s.cfg.TTL),
		CreatedAt:   now,
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	if err := s.store.Sessions().Create(sctx, session); err != nil {
		s.security.Event(observability.SeverityCritical, "session_store_failed", zap.Error(err))
		return nil, storageError("create session", err)
	}
	return session, nil
}

// ValidateSession returns the active session for rawToken without modifying it.
func (s *SessionService) ValidateSession(ctx context.Context, rawToken string) (_ *domain.Session, err error) {
	ctx, span := startSpan(ctx, "SessionService.ValidateSession")
	defer func() { endSpan(span, err) }()

	session, current, err := s.lookup(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if !current || !session.Active(s.now()) {
		s.reject(rawToken, "inactive")
		return nil, domain.ErrSessionInvalid
	}
	return session, nil
}

// RotateSession validates rawToken and swaps in a freshly minted one, keeping
// the session id. Presenting an already rotated token, or losing a concurrent
// rotation, revokes the whole session.
func (s *SessionService) RotateSession(ctx context.Context, rawToken string) (_ string, _ *domain.Session, err error) {
	ctx, span := startSpan(ctx, "SessionService.RotateSession")
	defer func() { endSpan(span, err) }()

	session, current, err := s.lookup(ctx, rawToken)
	if err != nil {
		return "", nil, err
	}
	now := s.now().UTC()
	if !session.Active(now) {
		s.reject(rawToken, "inactive")
		return "", nil, domain.ErrSessionInvalid
	}
	if !current {
		s.compromised(ctx, session, "refresh_token_reuse")
		return "", nil, domain.ErrSessionInvalid
	}

	fresh, err := s.random.String(RefreshTokenLength)
	if err != nil {
		s.security.Event(observability.SeverityCritical, "randomness_unavailable", zap.Error(err))
		return "", nil, err
	}
	freshHash := auth.HashToken(fresh)

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	err = s.store.Sessions().Rotate(sctx, session.ID, session.TokenHash, freshHash, now)
	switch {
	case errors.Is(err, domain.ErrRotationConflict):
		s.compromised(ctx, session, "refresh_rotation_conflict")
		return "", nil, domain.ErrSessionInvalid
	case err != nil:
		return "", nil, storageError("rotate session", err)
	}

	prev := session.TokenHash
	session.PreviousTokenHash = &prev
	session.TokenHash = freshHash
	session.RotatedAt = &now
	return fresh, session, nil
}

// RevokeSession marks the session revoked. Revoking twice is a no-op.
func (s *SessionService) RevokeSession(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "SessionService.RevokeSession")
	defer func() { endSpan(span, err) }()

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	if err := s.store.Sessions().Revoke(sctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return storageError("revoke session", err)
	}
	return nil
}

// RevokeByToken revokes the session holding rawToken. Unknown tokens are ignored.
func (s *SessionService) RevokeByToken(ctx context.Context, rawToken string) (*domain.Session, error) {
	session, _, err := s.lookup(ctx, rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.RevokeSession(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return session, nil
}

// RevokeAllForSubject revokes every live session of subject.
func (s *SessionService) RevokeAllForSubject(ctx context.Context, subject domain.Subject) (int64, error) {
	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	n, err := s.store.Sessions().RevokeAllForSubject(sctx, subject.Type, subject.ID, s.now().UTC())
	if err != nil {
		return 0, storageError("revoke subject sessions", err)
	}
	return n, nil
}

// GetSession loads a session by id.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	session, err := s.store.Sessions().GetByID(sctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("get session", err)
	}
	return session, nil
}

// PurgeExpired deletes sessions that expired or were revoked before the cutoff.
func (s *SessionService) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.store.Sessions().PurgeExpired(ctx, before)
	if err != nil {
		return 0, storageError("purge sessions", err)
	}
	return n, nil
}

// lookup resolves rawToken by hash. Found-but-stale and missing rows go
// through the same checks in the callers. current is false when the token
// matched the previous hash of a rotated session.
func (s *SessionService) lookup(ctx context.Context, rawToken string) (*domain.Session, bool, error) {
	hash := auth.HashToken(rawToken)

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	session, err := s.store.Sessions().GetByHash(sctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.reject(rawToken, "not_found")
			return nil, false, domain.ErrSessionInvalid
		}
		s.security.Event(observability.SeverityCritical, "session_lookup_failed", zap.Error(err))
		return nil, false, storageError("lookup session", err)
	}
	return session, session.TokenHash == hash, nil
}

func (s *SessionService) reject(rawToken, reason string) {
	s.security.Event(observability.SeverityLow, "refresh_token_rejected",
		zap.String("reason", reason),
		zap.String("token_prefix", observability.TokenPrefix(rawToken)))
}

func (s *SessionService) compromised(ctx context.Context, session *domain.Session, event string) {
	s.security.Event(observability.SeverityMedium, event,
		zap.String("session_id", session.ID),
		zap.String("subject_id", session.SubjectID))

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	if err := s.store.Sessions().Revoke(sctx, session.ID, s.now().UTC()); err != nil {
		s.logger.Error("revoke compromised session", zap.String("session_id", session.ID), zap.Error(err))
	}

	if s.dispatcher == nil {
		return
	}
	payload := events.SessionReuseDetectedPayload{SessionID: session.ID}
	if session.IPAddress != nil {
		payload.IPAddress = *session.IPAddress
	}
	if err := s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventSessionReuseDetected,
		SubjectID:   session.SubjectID,
		SubjectType: session.SubjectType,
		Timestamp:   s.now().UTC(),
		Payload:     payload,
	}); err != nil {
		s.logger.Warn("session reuse handlers failed", zap.Error(err))
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func truncate(v string, n int) string {
	if len(v) <= n {
		return v
	}
	for n > 0 && !utf8.RuneStart(v[n]) {
		n--
	}
	return v[:n]
}
