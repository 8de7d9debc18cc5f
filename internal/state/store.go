// Package state persists the last known availability of every target between runs.
//
// The file is a single flat JSON object:
//
//	{
//	  "https://shop.example/etb": "available",
//	  "https://other.example/etb": "not_available",
//	  "_last_heartbeat": "2026-10-14T08:00:00Z"
//	}
//
// Target keys only ever map to "available" or "not_available". A target that
// is absent is unknown; unknown is never written.
package state

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/availability"
	"git.home.luguber.info/inful/restockwatch/internal/foundation"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// HeartbeatKey is the reserved bookkeeping key sharing the mapping with targets.
const HeartbeatKey = "_last_heartbeat"

// Store is the in-memory state of one run. It is owned by a single goroutine.
type Store struct {
	path      string
	entries   map[string]availability.State
	heartbeat foundation.Option[time.Time]
}

// New returns an empty store that saves to path.
func New(path string) *Store {
	return &Store{
		path:    path,
		entries: make(map[string]availability.State),
	}
}

// Load reads the state file. A missing, unreadable or malformed file yields an
// empty store; the state is advisory, so starting fresh is always safe.
func Load(path string) *Store {
	s := New(path)

	data, err := os.ReadFile(path) // #nosec G304 -- configured state path
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read state file, starting fresh", "path", path, "error", err)
		}
		return s
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("Malformed state file, starting fresh", "path", path, "error", err)
		return s
	}

	for key, value := range raw {
		if key == HeartbeatKey {
			if ts, ok := parseHeartbeat(value); ok {
				s.heartbeat = foundation.Some(ts)
			}
			continue
		}
		str, ok := value.(string)
		if !ok {
			slog.Debug("Dropping non-string state entry", "target", key)
			continue
		}
		st, ok := availability.ParseState(str)
		if !ok {
			slog.Debug("Dropping invalid state entry", "target", key, "value", str)
			continue
		}
		s.entries[key] = st
	}
	return s
}

func parseHeartbeat(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		return ts, err == nil
	case float64:
		// Unix seconds, as written by older versions.
		sec := int64(t)
		return time.Unix(sec, int64((t-float64(sec))*1e9)).UTC(), true
	default:
		return time.Time{}, false
	}
}

// Path returns the file the store saves to.
func (s *Store) Path() string { return s.path }

// Get returns the stored state of target, or None if never seen.
func (s *Store) Get(target string) availability.Observed {
	if st, ok := s.entries[target]; ok {
		return availability.Seen(st)
	}
	return availability.NeverSeen()
}

// Set upserts the state of target. Invalid states are ignored.
func (s *Store) Set(target string, st availability.State) {
	if !st.Valid() || target == HeartbeatKey {
		return
	}
	s.entries[target] = st
}

// Delete forgets target so it becomes unknown again.
func (s *Store) Delete(target string) {
	delete(s.entries, target)
}

// Restore puts back a previously observed value, deleting the entry for None.
func (s *Store) Restore(target string, prev availability.Observed) {
	if st, ok := prev.Get(); ok {
		s.Set(target, st)
		return
	}
	s.Delete(target)
}

// Targets returns every stored target key in sorted order.
func (s *Store) Targets() []string {
	return slices.Sorted(maps.Keys(s.entries))
}

// Len returns the number of stored targets.
func (s *Store) Len() int { return len(s.entries) }

// CountAvailable counts the given targets currently stored as available.
func (s *Store) CountAvailable(targets []string) int {
	n := 0
	for _, t := range targets {
		if s.entries[t] == availability.Available {
			n++
		}
	}
	return n
}

// LastHeartbeat returns when the last heartbeat was sent.
func (s *Store) LastHeartbeat() foundation.Option[time.Time] {
	return s.heartbeat
}

// SetLastHeartbeat records a sent heartbeat.
func (s *Store) SetLastHeartbeat(t time.Time) {
	s.heartbeat = foundation.Some(t.UTC())
}

// Snapshot returns the serialisable mapping including the reserved key.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.entries)+1)
	for k, v := range s.entries {
		out[k] = string(v)
	}
	if ts, ok := s.heartbeat.Get(); ok {
		out[HeartbeatKey] = ts.Format(time.RFC3339Nano)
	}
	return out
}

// Save writes the store to a temp file in the same directory and renames it
// over the state file, so a crash mid-write leaves the previous file intact.
func (s *Store) Save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Snapshot()); err != nil {
		return errors.WrapError(err, errors.CategoryState, "encode state").Fatal().Build()
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryState, "create state directory").Fatal().WithContext("path", s.path).Build()
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return errors.WrapError(err, errors.CategoryState, "create temp state file").Fatal().WithContext("path", s.path).Build()
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return errors.WrapError(err, errors.CategoryState, "write state").Fatal().WithContext("path", s.path).Build()
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.WrapError(err, errors.CategoryState, "sync state").Fatal().WithContext("path", s.path).Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryState, "close state").Fatal().WithContext("path", s.path).Build()
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.WrapError(err, errors.CategoryState, "replace state file").Fatal().WithContext("path", s.path).Build()
	}
	return nil
}
