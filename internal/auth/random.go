package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/peoplehub/hr-identity/internal/domain"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	digits       = "0123456789"
)

// Generator draws credentials from a cryptographically secure byte source.
type Generator struct {
	reader io.Reader
}

// NewGenerator wraps r. A nil reader means crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{reader: r}
}

var defaultGenerator = NewGenerator(nil)

// RandomString returns n characters drawn uniformly from [A-Za-z0-9].
func RandomString(n int) (string, error) {
	return defaultGenerator.String(n)
}

// RandomNumeric returns n digits; leading zeros are kept.
func RandomNumeric(n int) (string, error) {
	return defaultGenerator.Numeric(n)
}

// String returns n alphanumeric characters.
func (g *Generator) String(n int) (string, error) {
	return g.pick(alphanumeric, n)
}

// Numeric returns n decimal digits.
func (g *Generator) Numeric(n int) (string, error) {
	return g.pick(digits, n)
}

// pick uses rejection sampling so every symbol has the same probability.
func (g *Generator) pick(alphabet string, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("credential length must not be negative: %d", n)
	}
	if n == 0 {
		return "", nil
	}

	size := len(alphabet)
	limit := 256 - 256%size
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+8)
	for len(out) < n {
		if _, err := io.ReadFull(g.reader, buf); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrRandomnessUnavailable, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%size])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// HashToken returns the hex SHA-256 digest stored in place of a raw refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
