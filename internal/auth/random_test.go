package auth

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peoplehub/hr-identity/internal/domain"
)

var (
	alnumPattern   = regexp.MustCompile(`^[A-Za-z0-9]*$`)
	numericPattern = regexp.MustCompile(`^[0-9]*$`)
)

func TestRandomStringAlphabetAndLength(t *testing.T) {
	for _, n := range []int{0, 1, 32, 64, 200} {
		s, err := RandomString(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
		assert.Regexp(t, alnumPattern, s)
	}
}

func TestRandomNumericAlphabetAndLength(t *testing.T) {
	for _, n := range []int{0, 1, 6, 20} {
		s, err := RandomNumeric(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
		assert.Regexp(t, numericPattern, s)
	}
}

func TestRandomNegativeLength(t *testing.T) {
	_, err := RandomString(-1)
	assert.Error(t, err)
	_, err = RandomNumeric(-5)
	assert.Error(t, err)
}

func TestRandomStringUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s, err := RandomString(64)
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "duplicate refresh token generated")
		seen[s] = struct{}{}
	}
}

func TestRandomNumericKeepsLeadingZeros(t *testing.T) {
	g := NewGenerator(bytes.NewReader(make([]byte, 64)))
	s, err := g.Numeric(6)
	require.NoError(t, err)
	assert.Equal(t, "000000", s)
}

func TestRandomRejectsBiasedBytes(t *testing.T) {
	// 248..255 fall outside the largest multiple of 62 and must be skipped.
	src := append(bytes.Repeat([]byte{255}, 16), bytes.Repeat([]byte{1}, 64)...)
	g := NewGenerator(bytes.NewReader(src))
	s, err := g.String(4)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("B", 4), s)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy pool closed") }

func TestRandomReaderFailure(t *testing.T) {
	g := NewGenerator(failingReader{})
	_, err := g.String(10)
	assert.ErrorIs(t, err, domain.ErrRandomnessUnavailable)
}

func TestHashTokenIsHexSHA256(t *testing.T) {
	h := HashToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.NotEqual(t, h, HashToken("abd"))
}

func TestRandomOutputCoversAlphabet(t *testing.T) {
	seen := map[rune]bool{}
	for i := 0; i < 100; i++ {
		s, err := RandomString(100)
		require.NoError(t, err)
		for _, r := range s {
			seen[r] = true
		}
	}
	for _, r := range alphanumeric {
		assert.True(t, seen[r], "symbol %q never drawn", r)
	}
	assert.Len(t, seen, len(alphanumeric))

	seenDigits := map[rune]bool{}
	for i := 0; i < 10; i++ {
		s, err := RandomNumeric(1000)
		require.NoError(t, err)
		for _, r := range s {
			seenDigits[r] = true
		}
	}
	assert.Len(t, seenDigits, len(digits))
	for _, r := range digits {
		assert.True(t, seenDigits[r], "digit %q never drawn", r)
	}
}
