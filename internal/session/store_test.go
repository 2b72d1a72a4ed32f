package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.Get(ctx, "open_activity_comments")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "open_activity_comments", `{"activityId":12}`))
	val, ok, err := s.Get(ctx, "open_activity_comments")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"activityId":12}`, val)

	// overwriting replaces the prior value
	require.NoError(t, s.Set(ctx, "open_activity_comments", `{"activityId":13}`))
	val, _, err = s.Get(ctx, "open_activity_comments")
	require.NoError(t, err)
	assert.Equal(t, `{"activityId":13}`, val)

	require.NoError(t, s.Remove(ctx, "open_activity_comments"))
	_, ok, err = s.Get(ctx, "open_activity_comments")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing an absent key is not an error
	require.NoError(t, s.Remove(ctx, "open_activity_comments"))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	val, ok, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestStore_RejectsBadPaths(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "")
	assert.Error(t, err)

	_, err = Open(ctx, "../../../etc/session.db")
	assert.Error(t, err)
}

func TestStore_EmptyKeyRejected(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Set(context.Background(), "  ", "v"))
}

func TestStore_NilSafe(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "k", "v"))
	assert.Error(t, s.Remove(context.Background(), "k"))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", "v"))
	val, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", val)

	require.NoError(t, m.Remove(ctx, "k"))
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
