package redlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_Length(t *testing.T) {
	for _, length := range []int{1, 8, 22, 64, 100} {
		tok, err := generateToken(length)
		require.NoError(t, err)
		assert.Len(t, tok, length)
	}
}

func TestGenerateToken_InvalidLength(t *testing.T) {
	for _, length := range []int{0, -1, -100} {
		_, err := generateToken(length)
		require.Error(t, err)
		var invalid *InvalidParameterError
		assert.ErrorAs(t, err, &invalid)
	}
}

func TestGenerateToken_NoCollisions(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := generateToken(22)
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "token collision at iteration %d", i)
		seen[tok] = struct{}{}
	}
}

func TestGenerateToken_Freshness(t *testing.T) {
	a, err := generateToken(22)
	require.NoError(t, err)
	b, err := generateToken(22)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
