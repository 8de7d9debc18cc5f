package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndRecent(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{RunID: "r1", Kind: "transition", Target: "https://a", Previous: "unknown", Current: "not_available", Timestamp: base},
		{RunID: "r2", Kind: "transition", Target: "https://a", Previous: "not_available", Current: "available", Timestamp: base.Add(time.Minute)},
		{RunID: "r2", Kind: "heartbeat", Timestamp: base.Add(2 * time.Minute)},
		{RunID: "r3", Kind: "transition", Target: "https://b", Previous: "unknown", Current: "available", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, s.Append(ctx, e))
	}

	all, err := s.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "https://b", all[0].Target)
	assert.Equal(t, "heartbeat", all[1].Kind)
	assert.True(t, all[3].Timestamp.Equal(base))

	limited, err := s.Recent(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	onlyA, err := s.Recent(ctx, 10, "https://a")
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "available", onlyA[0].Current)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), Entry{RunID: "r1", Kind: "transition", Target: "https://a", Current: "available"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.Recent(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RunID)
	assert.False(t, got[0].Timestamp.IsZero())
}
