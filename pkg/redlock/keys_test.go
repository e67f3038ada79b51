package redlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeKeys_SortsAndDedups(t *testing.T) {
	canonical, removed, err := canonicalizeKeys([]string{"zebra", "alpha", "beta", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "zebra"}, canonical)
	assert.Equal(t, []string{"alpha"}, removed)
}

func TestCanonicalizeKeys_SingleKey(t *testing.T) {
	canonical, removed, err := canonicalizeKeys([]string{"r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, canonical)
	assert.Empty(t, removed)
}

func TestCanonicalizeKeys_EmptyVector(t *testing.T) {
	_, _, err := canonicalizeKeys(nil)
	require.Error(t, err)
	var invalid *InvalidParameterError
	assert.ErrorAs(t, err, &invalid)
}

func TestCanonicalizeKeys_BlankElement(t *testing.T) {
	_, _, err := canonicalizeKeys([]string{"ok", "   "})
	require.Error(t, err)
	var invalid *InvalidParameterError
	assert.ErrorAs(t, err, &invalid)
}

func TestCanonicalizeKeys_NoDuplicates(t *testing.T) {
	canonical, removed, err := canonicalizeKeys([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, canonical)
	assert.Empty(t, removed)
}
