package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/auth"
	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/events"
	"github.com/peoplehub/hr-identity/internal/observability"
	"github.com/peoplehub/hr-identity/internal/repository"
)

// ResetTokenLength is the number of alphanumeric characters in a raw reset token.
const ResetTokenLength = 32

// ResetThrottle limits how many reset mails one address may trigger.
type ResetThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
}

// PasswordResetConfig tunes the reset flow.
type PasswordResetConfig struct {
	BcryptCost     int
	StorageTimeout time.Duration
	// ResponseFloor is the minimum duration of RequestReset, so known and
	// unknown addresses answer in the same time. Zero disables it.
	ResponseFloor time.Duration
}

// PasswordResetService runs the enumeration-resistant credential recovery flow.
type PasswordResetService struct {
	store      repository.Store
	sessions   *SessionService
	cipher     *auth.ResetCipher
	random     *auth.Generator
	throttle   ResetThrottle
	dispatcher events.Dispatcher
	security   *observability.SecurityLogger
	logger     *zap.Logger
	cfg        PasswordResetConfig
	now        func() time.Time
	wait       func(context.Context, time.Duration)
}

// PasswordResetDependencies groups collaborators of PasswordResetService.
type PasswordResetDependencies struct {
	Store      repository.Store
	Sessions   *SessionService
	Cipher     *auth.ResetCipher
	Random     *auth.Generator
	Throttle   ResetThrottle
	Dispatcher events.Dispatcher
	Security   *observability.SecurityLogger
	Logger     *zap.Logger
}

// NewPasswordResetService builds the service.
func NewPasswordResetService(cfg PasswordResetConfig, deps PasswordResetDependencies) *PasswordResetService {
	if deps.Random == nil {
		deps.Random = auth.NewGenerator(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &PasswordResetService{
		store:      deps.Store,
		sessions:   deps.Sessions,
		cipher:     deps.Cipher,
		random:     deps.Random,
		throttle:   deps.Throttle,
		dispatcher: deps.Dispatcher,
		security:   deps.Security,
		logger:     deps.Logger,
		cfg:        cfg,
		now:        time.Now,
		wait:       sleepContext,
	}
}

// WithClock overrides the time source.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	if now != nil {
		s.now = now
	}
	return s
}

// RequestReset starts a reset for email. It reports success for unknown
// addresses and for internal failures; only an inactive account yields
// domain.ErrAccountInactive.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (err error) {
	ctx, span := startSpan(ctx, "PasswordResetService.RequestReset")
	defer func() { endSpan(span, err) }()

	if s.cfg.ResponseFloor > 0 {
		start := time.Now()
		defer func() {
			if rest := s.cfg.ResponseFloor - time.Since(start); rest > 0 {
				s.wait(ctx, rest)
			}
		}()
	}

	email = normalizeEmail(email)

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()

	account, err := s.store.Accounts().FindByEmail(sctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.security.Event(observability.SeverityLow, "password_reset_unknown_account")
		observability.RecordOperation("reset_request", "unknown")
		return nil
	case err != nil:
		s.security.Event(observability.SeverityCritical, "password_reset_lookup_failed", zap.Error(err))
		observability.RecordOperation("reset_request", "error")
		return nil
	}

	if !account.Active {
		s.security.Event(observability.SeverityLow, "password_reset_inactive_account",
			zap.String("subject_id", account.Subject.ID))
		observability.RecordOperation("reset_request", "inactive")
		return domain.ErrAccountInactive
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err != nil {
			s.logger.Warn("reset throttle unavailable", zap.Error(err))
		} else if !allowed {
			s.security.Event(observability.SeverityMedium, "password_reset_throttled",
				zap.String("subject_id", account.Subject.ID))
			observability.RecordOperation("reset_request", "throttled")
			return nil
		}
	}

	raw, err := s.random.String(ResetTokenLength)
	if err != nil {
		s.security.Event(observability.SeverityCritical, "randomness_unavailable", zap.Error(err))
		return nil
	}
	token, err := s.cipher.Encrypt(raw)
	if err != nil {
		s.security.Event(observability.SeverityCritical, "password_reset_encrypt_failed", zap.Error(err))
		return nil
	}

	createdAt := s.now().UTC()
	req := &domain.PasswordResetRequest{Email: email, Token: token, CreatedAt: createdAt}
	if err := s.store.InTx(sctx, func(tx repository.Store) error {
		if err := tx.Resets().DeleteByEmail(sctx, email); err != nil {
			return err
		}
		return tx.Resets().Upsert(sctx, req)
	}); err != nil {
		s.security.Event(observability.SeverityCritical, "password_reset_store_failed", zap.Error(err))
		observability.RecordOperation("reset_request", "error")
		return nil
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, events.Event{
			ID:          uuid.NewString(),
			Type:        events.EventPasswordResetRequested,
			SubjectID:   account.Subject.ID,
			SubjectType: account.Subject.Type,
			Timestamp:   createdAt,
			Payload: events.PasswordResetRequestedPayload{
				Email:     email,
				Name:      account.Name,
				Token:     token,
				ExpiresAt: createdAt.Add(domain.PasswordResetTTL),
			},
		}); err != nil {
			s.logger.Error("password reset delivery failed", zap.String("subject_id", account.Subject.ID), zap.Error(err))
		}
	}

	s.logger.Info("password reset requested",
		zap.String("email", email),
		zap.String("token_prefix", observability.TokenPrefix(token)))
	observability.RecordOperation("reset_request", "ok")
	return nil
}

// RedeemToken returns the email bound to token while it is younger than
// domain.PasswordResetTTL. The row is left in place; CompleteReset consumes it.
func (s *PasswordResetService) RedeemToken(ctx context.Context, token string) (_ string, err error) {
	ctx, span := startSpan(ctx, "PasswordResetService.RedeemToken")
	defer func() { endSpan(span, err) }()

	req, err := s.redeem(ctx, token)
	if err != nil {
		observability.RecordOperation("reset_redeem", outcome(err))
		return "", err
	}
	observability.RecordOperation("reset_redeem", "ok")
	return req.Email, nil
}

// CompleteReset sets a new password for email and consumes its reset request.
// It must follow a successful RedeemToken.
func (s *PasswordResetService) CompleteReset(ctx context.Context, email, password string) error {
	return s.complete(ctx, normalizeEmail(email), "", password)
}

// ResetPassword redeems token and completes the reset in one call. The stored
// request must still carry token when the password is written.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, password string) error {
	email, err := s.RedeemToken(ctx, token)
	if err != nil {
		return err
	}
	return s.complete(ctx, email, token, password)
}

func (s *PasswordResetService) complete(ctx context.Context, email, token, password string) (err error) {
	ctx, span := startSpan(ctx, "PasswordResetService.CompleteReset")
	defer func() {
		observability.RecordOperation("reset_complete", outcome(err))
		endSpan(span, err)
	}()

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()

	var account *domain.Account
	err = s.store.InTx(sctx, func(tx repository.Store) error {
		req, err := tx.Resets().GetByEmail(sctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrResetTokenInvalid
		}
		if err != nil {
			return storageError("load reset request", err)
		}
		if req.Expired(s.now()) || (token != "" && req.Token != token) {
			return domain.ErrResetTokenInvalid
		}
		// a concurrent completion that consumed the row first wins
		if err := tx.Resets().Consume(sctx, email, req.Token); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrResetTokenInvalid
			}
			return storageError("consume reset request", err)
		}

		account, err = tx.Accounts().FindByEmail(sctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrResetTokenInvalid
		}
		if err != nil {
			return storageError("load account", err)
		}
		if !account.Active {
			return domain.ErrAccountInactive
		}

		if err := tx.Accounts().UpdatePassword(sctx, account.Subject, hash); err != nil {
			return storageError("update password", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenInvalid) {
			s.security.Event(observability.SeverityMedium, "password_reset_complete_rejected")
		}
		return err
	}

	var revoked int64
	if s.sessions != nil {
		revoked, err = s.sessions.RevokeAllForSubject(ctx, account.Subject)
		if err != nil {
			// the password is already changed; surviving sessions still expire
			s.logger.Error("revoke sessions after reset", zap.String("subject_id", account.Subject.ID), zap.Error(err))
			err = nil
		}
	}

	if s.dispatcher != nil {
		if perr := s.dispatcher.Publish(ctx, events.Event{
			ID:          uuid.NewString(),
			Type:        events.EventPasswordResetCompleted,
			SubjectID:   account.Subject.ID,
			SubjectType: account.Subject.Type,
			Timestamp:   s.now().UTC(),
			Payload:     events.PasswordResetCompletedPayload{Email: email, RevokedSessions: revoked},
		}); perr != nil {
			s.logger.Warn("password reset completion handlers failed", zap.Error(perr))
		}
	}

	s.logger.Info("password reset completed",
		zap.String("email", email),
		zap.Int64("revoked_sessions", revoked))
	return nil
}

func (s *PasswordResetService) redeem(ctx context.Context, token string) (*domain.PasswordResetRequest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.security.Event(observability.SeverityMedium, "password_reset_token_invalid", zap.String("reason", "empty"))
		return nil, domain.ErrResetTokenInvalid
	}
	if _, err := s.cipher.Decrypt(token); err != nil {
		s.security.Event(observability.SeverityMedium, "password_reset_token_invalid",
			zap.String("reason", "undecryptable"),
			zap.String("token_prefix", observability.TokenPrefix(token)))
		return nil, domain.ErrResetTokenInvalid
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()

	req, err := s.store.Resets().GetByToken(sctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		s.security.Event(observability.SeverityMedium, "password_reset_token_invalid",
			zap.String("reason", "not_found"),
			zap.String("token_prefix", observability.TokenPrefix(token)))
		return nil, domain.ErrResetTokenInvalid
	}
	if err != nil {
		s.security.Event(observability.SeverityCritical, "password_reset_lookup_failed", zap.Error(err))
		return nil, storageError("lookup reset token", err)
	}

	if req.Expired(s.now()) {
		s.security.Event(observability.SeverityMedium, "password_reset_token_invalid",
			zap.String("reason", "expired"),
			zap.String("token_prefix", observability.TokenPrefix(token)))
		return nil, domain.ErrResetTokenInvalid
	}
	return req, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrResetTokenInvalid), errors.Is(err, domain.ErrSessionInvalid):
		return "invalid"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, domain.ErrAccountInactive):
		return "inactive"
	case isInfraError(err):
		return "unavailable"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
