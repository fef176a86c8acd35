// Package memory holds an in-process repository.Store used when no database
// is configured and by service tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/peoplehub/hr-identity/internal/domain"
	"github.com/peoplehub/hr-identity/internal/repository"
)

type state struct {
	accounts map[string]domain.Account
	sessions map[string]domain.Session
	resets   map[string]domain.PasswordResetRequest
}

func newState() *state {
	return &state{
		accounts: make(map[string]domain.Account),
		sessions: make(map[string]domain.Session),
		resets:   make(map[string]domain.PasswordResetRequest),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	return c
}

// Store is a mutex-guarded repository.Store. Transactions work on a copy of
// the state that replaces the original on commit.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState()}
}

// AddAccount seeds an employee or customer account.
func (s *Store) AddAccount(acc domain.Account) {
	s.lock()
	defer s.unlock()
	s.data.accounts[accountKey(acc.Subject.Type, acc.Subject.ID)] = acc
}

// Session returns a copy of the stored session by id.
func (s *Store) Session(id string) (domain.Session, bool) {
	s.lock()
	defer s.unlock()
	sess, ok := s.data.sessions[id]
	return sess, ok
}

// ResetCount returns how many reset rows exist.
func (s *Store) ResetCount() int {
	s.lock()
	defer s.unlock()
	return len(s.data.resets)
}

// SetResetCreatedAt rewrites the creation time of the reset row for email.
func (s *Store) SetResetCreatedAt(email string, at time.Time) bool {
	s.lock()
	defer s.unlock()
	req, ok := s.data.resets[email]
	if ok {
		req.CreatedAt = at
		s.data.resets[email] = req
	}
	return ok
}

func (s *Store) Accounts() repository.AccountRepository     { return &accounts{s} }
func (s *Store) Sessions() repository.SessionRepository     { return &sessions{s} }
func (s *Store) Resets() repository.PasswordResetRepository { return &resets{s} }

// InTx serializes against every other operation on the Store.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: &sync.Mutex{}, data: s.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) lock()   { s.mu.Lock() }
func (s *Store) unlock() { s.mu.Unlock() }

func accountKey(t domain.SubjectType, id string) string {
	return string(t) + ":" + id
}

type accounts struct{ s *Store }

func (r *accounts) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.lock()
	defer r.s.unlock()

	var found *domain.Account
	for _, acc := range r.s.data.accounts {
		if !strings.EqualFold(acc.Subject.Email, email) {
			continue
		}
		acc := acc
		if acc.Subject.Type == domain.SubjectTypeEmployee {
			return &acc, nil
		}
		found = &acc
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (r *accounts) FindByID(ctx context.Context, subjectType domain.SubjectType, id string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.lock()
	defer r.s.unlock()

	acc, ok := r.s.data.accounts[accountKey(subjectType, id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &acc, nil
}

func (r *accounts) UpdatePassword(ctx context.Context, subject domain.Subject, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()

	key := accountKey(subject.Type, subject.ID)
	acc, ok := r.s.data.accounts[key]
	if !ok {
		return domain.ErrNotFound
	}
	acc.PasswordHash = passwordHash
	acc.UpdatedAt = time.Now().UTC()
	r.s.data.accounts[key] = acc
	return nil
}

type sessions struct{ s *Store }

func (r *sessions) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()

	for _, existing := range r.s.data.sessions {
		if existing.TokenHash == session.TokenHash {
			return errDuplicate
		}
	}
	r.s.data.sessions[session.ID] = *session
	return nil
}

func (r *sessions) GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.lock()
	defer r.s.unlock()

	for _, sess := range r.s.data.sessions {
		if sess.TokenHash == tokenHash || (sess.PreviousTokenHash != nil && *sess.PreviousTokenHash == tokenHash) {
			sess := sess
			return &sess, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *sessions) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.lock()
	defer r.s.unlock()

	sess, ok := r.s.data.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}

func (r *sessions) Rotate(ctx context.Context, id, oldHash, newHash string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()

	sess, ok := r.s.data.sessions[id]
	if !ok || sess.TokenHash != oldHash || sess.RevokedAt != nil {
		return domain.ErrRotationConflict
	}
	prev := sess.TokenHash
	sess.PreviousTokenHash = &prev
	sess.TokenHash = newHash
	sess.RotatedAt = &at
	r.s.data.sessions[id] = sess
	return nil
}

func (r *sessions) Revoke(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()

	sess, ok := r.s.data.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if sess.RevokedAt == nil {
		sess.RevokedAt = &at
		r.s.data.sessions[id] = sess
	}
	return nil
}

func (r *sessions) RevokeAllForSubject(ctx context.Context, subjectType domain.SubjectType, subjectID string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.lock()
	defer r.s.unlock()

	var n int64
	for id, sess := range r.s.data.sessions {
		if sess.SubjectType != subjectType || sess.SubjectID != subjectID || sess.RevokedAt != nil {
			continue
		}
		sess.RevokedAt = &at
		r.s.data.sessions[id] = sess
		n++
	}
	return n, nil
}

func (r *sessions) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.lock()
	defer r.s.unlock()

	var n int64
	for id, sess := range r.s.data.sessions {
		if sess.ExpiresAt.Before(before) || (sess.RevokedAt != nil && sess.RevokedAt.Before(before)) {
			delete(r.s.data.sessions, id)
			n++
		}
	}
	return n, nil
}

type resets struct{ s *Store }

func (r *resets) DeleteByEmail(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()
	delete(r.s.data.resets, email)
	return nil
}

func (r *resets) Upsert(ctx context.Context, req *domain.PasswordResetRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()

	for email, existing := range r.s.data.resets {
		if existing.Token == req.Token && email != req.Email {
			return errDuplicate
		}
	}
	r.s.data.resets[req.Email] = *req
	return nil
}

func (r *resets) GetByToken(ctx context.Context, token string) (*domain.PasswordResetRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.lock()
	defer r.s.unlock()

	for _, req := range r.s.data.resets {
		if req.Token == token {
			req := req
			return &req, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *resets) GetByEmail(ctx context.Context, email string) (*domain.PasswordResetRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.lock()
	defer r.s.unlock()

	req, ok := r.s.data.resets[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (r *resets) Consume(ctx context.Context, email, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.lock()
	defer r.s.unlock()

	req, ok := r.s.data.resets[email]
	if !ok || req.Token != token {
		return domain.ErrNotFound
	}
	delete(r.s.data.resets, email)
	return nil
}

func (r *resets) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.lock()
	defer r.s.unlock()

	var n int64
	for email, req := range r.s.data.resets {
		if req.CreatedAt.Before(before) {
			delete(r.s.data.resets, email)
			n++
		}
	}
	return n, nil
}
