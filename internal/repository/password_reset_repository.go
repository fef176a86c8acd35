package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/peoplehub/hr-identity/internal/domain"
)

// PasswordResetRepository manages the single live reset request per email.
type PasswordResetRepository interface {
	DeleteByEmail(ctx context.Context, email string) error
	// Upsert writes req, replacing any row for the same email.
	Upsert(ctx context.Context, req *domain.PasswordResetRequest) error
	GetByToken(ctx context.Context, token string) (*domain.PasswordResetRequest, error)
	GetByEmail(ctx context.Context, email string) (*domain.PasswordResetRequest, error)
	// Consume deletes the request for email only while it still carries
	// token. It returns domain.ErrNotFound when no row was removed.
	Consume(ctx context.Context, email, token string) error
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type passwordResetRepository struct {
	q DBTX
}

func (r *passwordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1`, email)
	return err
}

func (r *passwordResetRepository) Upsert(ctx context.Context, req *domain.PasswordResetRequest) error {
	const query = `
        INSERT INTO password_resets (email, token, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO UPDATE SET token = EXCLUDED.token, created_at = EXCLUDED.created_at`

	_, err := r.q.ExecContext(ctx, query, req.Email, req.Token, req.CreatedAt)
	return err
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, token string) (*domain.PasswordResetRequest, error) {
	const query = `SELECT email, token, created_at FROM password_resets WHERE token = $1`
	return scanReset(r.q.QueryRowContext(ctx, query, token))
}

func (r *passwordResetRepository) GetByEmail(ctx context.Context, email string) (*domain.PasswordResetRequest, error) {
	const query = `SELECT email, token, created_at FROM password_resets WHERE email = $1`
	return scanReset(r.q.QueryRowContext(ctx, query, email))
}

func (r *passwordResetRepository) Consume(ctx context.Context, email, token string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1 AND token = $2`, email, token)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *passwordResetRepository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM password_resets WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanReset(row *sql.Row) (*domain.PasswordResetRequest, error) {
	var req domain.PasswordResetRequest
	if err := row.Scan(&req.Email, &req.Token, &req.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}
