package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peoplehub/hr-identity/internal/domain"
)

var testSubject = domain.Subject{
	ID:    "6f1c1c9e-7d0a-4a4e-9a57-0d3d7b1a2b10",
	Type:  domain.SubjectTypeEmployee,
	Role:  domain.RoleHR,
	Email: "hr@example.com",
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := newClock()
	tm := NewTokenManager("s3cret", 15*time.Minute).WithClock(clock.Now)

	token, exp, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(15*time.Minute), exp)

	got, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testSubject, got)
}

func TestVerifyExpiresAtTTL(t *testing.T) {
	clock := newClock()
	tm := NewTokenManager("s3cret", 15*time.Minute).WithClock(clock.Now)

	token, _, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)

	clock.Advance(15*time.Minute - time.Millisecond)
	_, err = tm.Verify(token)
	require.NoError(t, err)

	clock.Advance(time.Millisecond)
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestIssueExpiredIsDeadImmediately(t *testing.T) {
	clock := newClock()
	tm := NewTokenManager("s3cret", time.Hour).WithClock(clock.Now)

	token, exp, err := tm.IssueExpired(testSubject)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(LogoutTokenTTL), exp)

	clock.Advance(LogoutTokenTTL)
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyTamperedSignature(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)
	token, _, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[2] = flipFirst(parts[2])

	_, err = tm.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyTamperedPayload(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)
	token, _, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	require.Contains(t, string(payload), `"role":"HR"`)

	forged := strings.Replace(string(payload), `"role":"HR"`, `"role":"SUPER_USER"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = tm.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestIssueExpiryMatchesEnforcedExpiry(t *testing.T) {
	clock := newClock()
	clock.Advance(500 * time.Microsecond)
	tm := NewTokenManager("s3cret", time.Minute).WithClock(clock.Now)

	token, exp, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)
	assert.Equal(t, newClock().t.Add(time.Minute), exp)

	clock.t = exp.Add(-time.Microsecond)
	_, err = tm.Verify(token)
	require.NoError(t, err)

	clock.t = exp
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenManager("one", time.Hour)
	verifier := NewTokenManager("two", time.Hour)

	token, _, err := issuer.Issue(testSubject, 0)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestSetSecretInvalidatesOldTokens(t *testing.T) {
	tm := NewTokenManager("old", time.Hour)
	token, _, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)

	tm.SetSecret("new")
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	fresh, _, err := tm.Issue(testSubject, 0)
	require.NoError(t, err)
	_, err = tm.Verify(fresh)
	assert.NoError(t, err)
}

func TestVerifyMalformed(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)

	for _, raw := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		_, err := tm.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenMalformed, raw)
	}
}

func TestVerifyRejectsMissingClaims(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)

	claims := jwt.MapClaims{
		"sub": "x",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)

	claims := &Claims{
		SubjectType: testSubject.Type,
		Role:        testSubject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testSubject.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.Error(t, err)
}

func flipFirst(s string) string {
	if s[0] == 'A' {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}
