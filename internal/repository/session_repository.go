package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/peoplehub/hr-identity/internal/domain"
)

// SessionRepository persists hashed refresh sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	// GetByHash matches the current hash or the last rotated-away one.
	GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Rotate swaps the token hash only while it still equals oldHash and the
	// session is unrevoked. It returns domain.ErrRotationConflict otherwise.
	Rotate(ctx context.Context, id, oldHash, newHash string, at time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForSubject(ctx context.Context, subjectType domain.SubjectType, subjectID string, at time.Time) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	q DBTX
}

const sessionColumns = `id, subject_id, subject_type, token_hash, previous_token_hash, user_agent, ip_address, expires_at, created_at, rotated_at, revoked_at`

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	const query = `
        INSERT INTO sessions (id, subject_id, subject_type, token_hash, user_agent, ip_address, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.q.ExecContext(ctx, query,
		s.ID,
		s.SubjectID,
		string(s.SubjectType),
		s.TokenHash,
		s.UserAgent,
		s.IPAddress,
		s.ExpiresAt,
		s.CreatedAt,
	)
	return err
}

func (r *sessionRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1 OR previous_token_hash = $1 LIMIT 1`
	return scanSession(r.q.QueryRowContext(ctx, query, tokenHash))
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.q.QueryRowContext(ctx, query, id))
}

func (r *sessionRepository) Rotate(ctx context.Context, id, oldHash, newHash string, at time.Time) error {
	const query = `
        UPDATE sessions
        SET previous_token_hash = token_hash, token_hash = $3, rotated_at = $4
        WHERE id = $1 AND token_hash = $2 AND revoked_at IS NULL`

	res, err := r.q.ExecContext(ctx, query, id, oldHash, newHash, at)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrRotationConflict
		}
		return err
	}
	return nil
}

func (r *sessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE sessions SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`

	res, err := r.q.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sessionRepository) RevokeAllForSubject(ctx context.Context, subjectType domain.SubjectType, subjectID string, at time.Time) (int64, error) {
	const query = `
        UPDATE sessions SET revoked_at = $3
        WHERE subject_type = $1 AND subject_id = $2 AND revoked_at IS NULL`

	res, err := r.q.ExecContext(ctx, query, string(subjectType), subjectID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1 OR revoked_at < $1`

	res, err := r.q.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var (
		s           domain.Session
		subjectType string
	)
	if err := row.Scan(
		&s.ID,
		&s.SubjectID,
		&subjectType,
		&s.TokenHash,
		&s.PreviousTokenHash,
		&s.UserAgent,
		&s.IPAddress,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.RotatedAt,
		&s.RevokedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	s.SubjectType = domain.SubjectType(subjectType)
	return &s, nil
}
