package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bavix/dobson/internal/registry"
)

func TestWatcherReloadsOnExternalEdit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "devices.json")

	reg, err := registry.Open(path)
	require.NoError(t, err)

	w, err := registry.NewWatcher(reg)
	require.NoError(t, err)

	reloaded := make(chan error, 4)
	w.OnReload(func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte(`{"aa:bb:cc:dd:ee:ff": {"presence": true, "user": "Sean", "model": "x"}}`), 0o600))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("registry was not reloaded")
	}

	d, ok := reg.Lookup("aa:bb:cc:dd:ee:ff")
	require.True(t, ok)
	assert.Equal(t, "Sean", d.User)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	reg, err := registry.Open(filepath.Join(dir, "devices.json"))
	require.NoError(t, err)

	w, err := registry.NewWatcher(reg)
	require.NoError(t, err)

	reloaded := make(chan error, 1)
	w.OnReload(func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("unexpected reload")
	case <-time.After(500 * time.Millisecond):
	}
}
