package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, w *FsWatcher, timeout time.Duration) []FileEvent {
	t.Helper()
	var got []FileEvent
	deadline := time.After(timeout)
	for {
		select {
		case evt, ok := <-w.Events():
			if !ok {
				return got
			}
			got = append(got, evt)
		case <-deadline:
			return got
		}
	}
}

func TestFsWatcher_DetectsCreateAndModify(t *testing.T) {
	dir := t.TempDir()

	opts := DefaultOptions()
	opts.DebounceWindow = 20 * time.Millisecond
	w, err := NewFsWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Start(ctx, dir) }()
	time.Sleep(50 * time.Millisecond) // let the watcher finish its initial walk

	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	events := collectEvents(t, w, 500*time.Millisecond)
	require.NotEmpty(t, events)
	assert.Equal(t, "note.txt", events[0].Path)
}

func TestFsWatcher_IgnoresDotGit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))

	opts := DefaultOptions()
	w, err := NewFsWatcher(opts)
	require.NoError(t, err)

	assert.True(t, w.shouldIgnoreDir(".git"))
	assert.True(t, w.shouldIgnoreDir(filepath.Join(".git", "objects")))
	assert.False(t, w.shouldIgnoreDir("src"))
}

func TestFsWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewFsWatcher(DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
