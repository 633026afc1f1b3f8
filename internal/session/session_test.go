package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	store := NewStore(DefaultTTL)

	sess := store.Create(1, "alice")
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Equal(t, "alice", sess.Username)

	got, ok := store.Get(sess.Token)
	require.True(t, ok)
	assert.Equal(t, sess.Token, got.Token)
	assert.Equal(t, "alice", got.Username)

	_, ok = store.Get("no-such-token")
	assert.False(t, ok)
}

func TestTokensAreUnique(t *testing.T) {
	store := NewStore(DefaultTTL)

	first := store.Create(1, "alice")
	second := store.Create(1, "alice")
	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, store.Active(), 2)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	store := NewStore(time.Hour)

	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	sess := store.Create(1, "alice")
	_, ok := store.Get(sess.Token)
	require.True(t, ok)

	now = now.Add(time.Hour + time.Second)
	_, ok = store.Get(sess.Token)
	assert.False(t, ok, "session should expire after the TTL")

	// Expired sessions are removed on access.
	assert.Empty(t, store.Active())
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewStore(DefaultTTL)

	sess := store.Create(1, "alice")
	store.Delete(sess.Token)
	store.Delete(sess.Token)

	_, ok := store.Get(sess.Token)
	assert.False(t, ok)
}

func TestPruneRemovesOnlyExpired(t *testing.T) {
	store := NewStore(time.Hour)

	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	old := store.Create(1, "alice")
	now = now.Add(2 * time.Hour)
	fresh := store.Create(2, "bob")

	removed := store.Prune()
	assert.Equal(t, 1, removed)

	_, ok := store.Get(old.Token)
	assert.False(t, ok)
	_, ok = store.Get(fresh.Token)
	assert.True(t, ok)
}
