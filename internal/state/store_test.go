package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.json"))
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Get("https://shop.example/a").IsNone())
	assert.True(t, s.LastHeartbeat().IsNone())
}

func TestLoad_MalformedFileIsEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":   "{not json",
		"array":     `["https://shop.example/a"]`,
		"truncated": `{"https://shop.example/a": "avail`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			s := Load(path)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestLoad_DropsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "https://a.example/x": "available",
  "https://b.example/x": "not_available",
  "https://c.example/x": "unknown",
  "https://d.example/x": 3,
  "_last_heartbeat": "2026-10-01T12:00:00Z"
}`), 0o600))

	s := Load(path)
	assert.Equal(t, []string{"https://a.example/x", "https://b.example/x"}, s.Targets())
	assert.Equal(t, "available", availability.Label(s.Get("https://a.example/x")))
	assert.Equal(t, availability.Unknown, availability.Label(s.Get("https://c.example/x")))

	ts, ok := s.LastHeartbeat().Get()
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)))
}

func TestLoad_UnixHeartbeat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_last_heartbeat": 1760000000}`), 0o600))
	ts, ok := Load(path).LastHeartbeat().Get()
	require.True(t, ok)
	assert.Equal(t, int64(1760000000), ts.Unix())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(path)
	s.Set("https://a.example/x", availability.Available)
	s.Set("https://b.example/x?q=1&r=2", availability.NotAvailable)
	s.Set("https://c.example/x", availability.State("unknown"))
	s.Set(HeartbeatKey, availability.Available)
	hb := time.Date(2026, 10, 14, 6, 30, 0, 0, time.UTC)
	s.SetLastHeartbeat(hb)

	require.NoError(t, s.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]string{
		"https://a.example/x":         "available",
		"https://b.example/x?q=1&r=2": "not_available",
		HeartbeatKey:                  "2026-10-14T06:30:00Z",
	}, raw)
	assert.Contains(t, string(data), "&r=2", "URLs are written without HTML escaping")

	reloaded := Load(path)
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())

	// Re-saving unchanged state is semantically idempotent.
	require.NoError(t, reloaded.Save())
	assert.Equal(t, s.Snapshot(), Load(path).Snapshot())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRestoreAndCount(t *testing.T) {
	s := New("unused.json")
	s.Set("a", availability.Available)
	s.Set("b", availability.Available)
	s.Set("c", availability.NotAvailable)

	assert.Equal(t, 2, s.CountAvailable([]string{"a", "b", "c", "d"}))
	assert.Equal(t, 1, s.CountAvailable([]string{"a"}))

	s.Restore("a", availability.Seen(availability.NotAvailable))
	s.Restore("b", availability.NeverSeen())
	assert.Equal(t, "not_available", availability.Label(s.Get("a")))
	assert.True(t, s.Get("b").IsNone())
	assert.Equal(t, []string{"a", "c"}, s.Targets())
}
