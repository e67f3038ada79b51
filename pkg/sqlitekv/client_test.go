package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(context.Background(), Config{Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAcquire_GrantsWhenAbsent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.Acquire(ctx, []string{"r1"}, "tok-a", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquire_RejectsWhenHeld(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.Acquire(ctx, []string{"r1"}, "tok-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Acquire(ctx, []string{"r1"}, "tok-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcquire_GrantsAfterExpiry(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.Acquire(ctx, []string{"r1"}, "tok-a", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	ok, err = c.Acquire(ctx, []string{"r1"}, "tok-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquire_MultiKeyAllOrNothing(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.Acquire(ctx, []string{"a"}, "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Acquire(ctx, []string{"a", "b"}, "tok-multi", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "acquiring [a,b] must fail entirely because a is held")

	ok, err = c.Acquire(ctx, []string{"b"}, "tok-b-only", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "b must remain untouched by the failed multi-key attempt")
}

func TestRelease_DeletesOnMatch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, []string{"r1"}, "tok-a", time.Minute)
	require.NoError(t, err)

	ok, err := c.Release(ctx, []string{"r1"}, "tok-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Acquire(ctx, []string{"r1"}, "tok-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "key must be free again after release")
}

func TestRelease_NoopOnMismatch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, []string{"r1"}, "tok-a", time.Minute)
	require.NoError(t, err)

	ok, err := c.Release(ctx, []string{"r1"}, "wrong-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelease_NoopAfterExpiry(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, []string{"r1"}, "tok-a", 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	ok, err := c.Release(ctx, []string{"r1"}, "tok-a")
	require.NoError(t, err)
	assert.False(t, ok, "an already-expired key must not be reported as deleted")
}

func TestExtend_SucceedsOnMatch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, []string{"r1"}, "tok-a", 50*time.Millisecond)
	require.NoError(t, err)

	ok, err := c.Extend(ctx, []string{"r1"}, "tok-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(80 * time.Millisecond)

	ok, err = c.Acquire(ctx, []string{"r1"}, "tok-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "extended key must still be held past its original TTL")
}

func TestExtend_FailsOnWrongToken(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, []string{"r1"}, "tok-a", time.Minute)
	require.NoError(t, err)

	ok, err := c.Extend(ctx, []string{"r1"}, "wrong-token", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtend_MultiKeyAllOrNothing(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, []string{"a", "b"}, "tok-multi", 50*time.Millisecond)
	require.NoError(t, err)
	_, err = c.Acquire(ctx, []string{"c"}, "someone-else", time.Minute)
	require.NoError(t, err)

	ok, err := c.Extend(ctx, []string{"a", "b", "c"}, "tok-multi", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "extend must fail entirely because c does not match")

	time.Sleep(80 * time.Millisecond)
	ok, err = c.Acquire(ctx, []string{"a"}, "tok-new", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a and b must not have been extended by the failed multi-key attempt")
}
