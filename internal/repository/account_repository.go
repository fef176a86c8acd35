package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/peoplehub/hr-identity/internal/domain"
)

// AccountRepository reads credential views of employees and customers.
type AccountRepository interface {
	// FindByEmail resolves employees first, then customers.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, subjectType domain.SubjectType, id string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, subject domain.Subject, passwordHash string) error
}

type accountRepository struct {
	q DBTX
}

const (
	employeeColumns = `id, role, email, name, password_hash, is_active, created_at, updated_at`
	customerColumns = `id, 'CUSTOMER', email, name, password_hash, is_active, created_at, updated_at`
)

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const employeeQuery = `SELECT ` + employeeColumns + ` FROM employees WHERE lower(email) = lower($1)`
	acc, err := scanAccount(r.q.QueryRowContext(ctx, employeeQuery, email), domain.SubjectTypeEmployee)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return acc, err
	}

	const customerQuery = `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1)`
	return scanAccount(r.q.QueryRowContext(ctx, customerQuery, email), domain.SubjectTypeCustomer)
}

func (r *accountRepository) FindByID(ctx context.Context, subjectType domain.SubjectType, id string) (*domain.Account, error) {
	var query string
	switch subjectType {
	case domain.SubjectTypeEmployee:
		query = `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	case domain.SubjectTypeCustomer:
		query = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	default:
		return nil, domain.ErrNotFound
	}
	return scanAccount(r.q.QueryRowContext(ctx, query, id), subjectType)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, subject domain.Subject, passwordHash string) error {
	var query string
	switch subject.Type {
	case domain.SubjectTypeEmployee:
		query = `UPDATE employees SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	case domain.SubjectTypeCustomer:
		query = `UPDATE customers SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	default:
		return domain.ErrNotFound
	}

	res, err := r.q.ExecContext(ctx, query, passwordHash, subject.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanAccount(row *sql.Row, subjectType domain.SubjectType) (*domain.Account, error) {
	var (
		acc  domain.Account
		role string
	)
	if err := row.Scan(
		&acc.Subject.ID,
		&role,
		&acc.Subject.Email,
		&acc.Name,
		&acc.PasswordHash,
		&acc.Active,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	acc.Subject.Type = subjectType
	acc.Subject.Role = domain.Role(role)
	return &acc, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
