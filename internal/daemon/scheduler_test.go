package daemon

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/restockwatch/internal/config"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestScheduler_Schedule(t *testing.T) {
	cases := []struct {
		name    string
		watch   config.WatchConfig
		wantErr bool
	}{
		{"interval", config.WatchConfig{Interval: 10 * time.Minute}, false},
		{"cron", config.WatchConfig{Cron: "*/10 * * * *"}, false},
		{"cron wins over zero interval", config.WatchConfig{Cron: "0 */4 * * *"}, false},
		{"bad cron", config.WatchConfig{Interval: time.Minute, Cron: "every tuesday"}, true},
		{"zero interval", config.WatchConfig{}, true},
		{"negative interval", config.WatchConfig{Interval: -time.Second}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestScheduler(t)
			id, err := s.Schedule("check", tc.watch, func() {})
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, id)
			require.NoError(t, s.Remove(id))
		})
	}
}

func TestScheduler_FirstRunIsImmediate(t *testing.T) {
	s := newTestScheduler(t)
	var runs atomic.Int32
	_, err := s.ScheduleEvery("check", time.Hour, func() { runs.Add(1) })
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestScheduler_RemoveUnknownID(t *testing.T) {
	s := newTestScheduler(t)
	assert.Error(t, s.Remove("not-a-uuid"))
}
