package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/peoplehub/hr-identity/internal/domain"
)

// LogoutTokenTTL is the lifetime of the token handed back on logout.
const LogoutTokenTTL = time.Millisecond

var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
)

func init() {
	// Second precision would round a 1ms logout token up to a live one.
	jwt.TimePrecision = time.Millisecond
}

// TokenManager handles issuing and validating access tokens.
type TokenManager struct {
	mu     sync.RWMutex
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	if now != nil {
		tm.now = now
	}
	return tm
}

// SetSecret swaps the signing key. Tokens signed with the old key stop verifying.
func (tm *TokenManager) SetSecret(secret string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.secret = []byte(secret)
}

// TTL returns the default access token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Claims describes JWT payload.
type Claims struct {
	SubjectType domain.SubjectType `json:"subject_type"`
	Role        domain.Role        `json:"role"`
	Email       string             `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for subject. A non-positive ttl uses the configured default.
func (tm *TokenManager) Issue(subject domain.Subject, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = tm.ttl
	}
	// claims carry millisecond precision; the returned expiry must match
	now := tm.now().Truncate(time.Millisecond)
	expiresAt := now.Add(ttl)
	claims := &Claims{
		SubjectType: subject.Type,
		Role:        subject.Role,
		Email:       subject.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	tm.mu.RLock()
	secret := tm.secret
	tm.mu.RUnlock()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// IssueExpired mints the token returned on logout so cached copies die immediately.
func (tm *TokenManager) IssueExpired(subject domain.Subject) (string, time.Time, error) {
	return tm.Issue(subject, LogoutTokenTTL)
}

// Verify validates signature and expiry and returns the embedded subject.
func (tm *TokenManager) Verify(tokenStr string) (domain.Subject, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return domain.Subject{}, ErrTokenMalformed
	}

	tm.mu.RLock()
	secret := tm.secret
	tm.mu.RUnlock()

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return domain.Subject{}, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Subject{}, ErrTokenExpired
		default:
			return domain.Subject{}, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Subject{}, ErrTokenMalformed
	}
	if claims.Subject == "" || !claims.SubjectType.Valid() || !claims.Role.Valid() {
		return domain.Subject{}, ErrTokenMalformed
	}

	return domain.Subject{
		ID:    claims.Subject,
		Type:  claims.SubjectType,
		Role:  claims.Role,
		Email: claims.Email,
	}, nil
}
