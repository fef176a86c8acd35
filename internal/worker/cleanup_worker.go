package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/observability"
)

// SessionPurger removes sessions that expired or were revoked before a cutoff.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// ResetPurger removes reset requests created before a cutoff.
type ResetPurger interface {
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Cleanup deletes dead identity rows. Expiry is always re-checked on read,
// so this only reclaims storage.
type Cleanup struct {
	sessions SessionPurger
	resets   ResetPurger
	logger   *zap.Logger
	now      func() time.Time
}

// NewCleanup builds the worker.
func NewCleanup(sessions SessionPurger, resets ResetPurger, logger *zap.Logger) *Cleanup {
	return &Cleanup{sessions: sessions, resets: resets, logger: logger, now: time.Now}
}

// Run performs one cleanup pass.
func (w *Cleanup) Run(ctx context.Context) error {
	now := w.now().UTC()

	sessions, err := w.sessions.PurgeExpired(ctx, now)
	if err != nil {
		return err
	}
	observability.CleanupRowsTotal.WithLabelValues("sessions").Add(float64(sessions))

	resets, err := w.resets.PurgeOlderThan(ctx, now.Add(-domain.PasswordResetTTL))
	if err != nil {
		return err
	}
	observability.CleanupRowsTotal.WithLabelValues("password_resets").Add(float64(resets))

	if sessions > 0 || resets > 0 {
		w.logger.Info("cleanup pass",
			zap.Int64("sessions", sessions),
			zap.Int64("password_resets", resets))
	}
	return nil
}

// StartCleanup runs a pass every interval until ctx is cancelled.
func StartCleanup(ctx context.Context, interval time.Duration, w *Cleanup) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				w.logger.Warn("cleanup pass failed", zap.Error(err))
			}
		}
	}
}
