package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/restockwatch/internal/config"
)

type countingReloader struct {
	mu    sync.Mutex
	calls int
	last  *config.Config
}

func (r *countingReloader) ReloadConfig(_ context.Context, cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = cfg
	return nil
}

func (r *countingReloader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestConfigWatcher_ReloadsDaemonOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restockwatch.yaml")
	writeFile(t, path, "targets:\n  - url: https://a.example/x\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	d, err := New(cfg, path, (&trackingFactory{}).build, nil)
	require.NoError(t, err)

	cw, err := NewConfigWatcher(path, d)
	require.NoError(t, err)
	cw.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, cw.Start(ctx))
	t.Cleanup(func() { _ = cw.Stop() })

	writeFile(t, path, "targets:\n  - url: https://a.example/x\n  - url: https://b.example/y\n")

	require.Eventually(t, func() bool {
		return len(d.GetConfig().Targets) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestConfigWatcher_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restockwatch.yaml")
	body := "targets:\n  - url: https://a.example/x\n"
	writeFile(t, path, body)

	r := &countingReloader{}
	cw, err := NewConfigWatcher(path, r)
	require.NoError(t, err)

	require.NoError(t, cw.reload(context.Background()))
	assert.Equal(t, 0, r.count(), "identical bytes must not reload")

	writeFile(t, path, body+"  - url: https://b.example/y\n")
	require.NoError(t, cw.reload(context.Background()))
	require.NoError(t, cw.reload(context.Background()))
	assert.Equal(t, 1, r.count())
	assert.Len(t, r.last.Targets, 2)
}

func TestConfigWatcher_KeepsConfigOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restockwatch.yaml")
	writeFile(t, path, "targets:\n  - url: https://a.example/x\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	d, err := New(cfg, path, (&trackingFactory{}).build, nil)
	require.NoError(t, err)

	cw, err := NewConfigWatcher(path, d)
	require.NoError(t, err)
	writeFile(t, path, "targets: [\n")
	require.Error(t, cw.reload(context.Background()))
	require.Same(t, cfg, d.GetConfig())
}

func TestConfigWatcher_StopTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restockwatch.yaml")
	writeFile(t, path, "targets:\n  - url: https://a.example/x\n")
	cw, err := NewConfigWatcher(path, &countingReloader{})
	require.NoError(t, err)
	require.NoError(t, cw.Start(context.Background()))
	require.NoError(t, cw.Stop())
	require.NoError(t, cw.Stop())
}
