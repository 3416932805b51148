package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_BatchesSwiftChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api.swift", "let a = 1\n")

	changes := make(chan []string, 1)
	w, err := NewWatcher(root, 50*time.Millisecond, func(paths []string) {
		select {
		case changes <- paths:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// Give the watch registrations a moment before touching files
	time.Sleep(100 * time.Millisecond)
	writeFile(t, root, "notes.txt", "ignored\n")
	writeFile(t, root, "api.swift", "let a = 2\n")

	select {
	case paths := <-changes:
		require.Len(t, paths, 1)
		assert.Equal(t, "api.swift", filepath.Base(paths[0]))
	case <-time.After(3 * time.Second):
		t.Fatal("watcher reported no change")
	}

	cancel()
	<-done
}

func TestWatcher_MissingRoot(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), 0, func([]string) {})
	assert.Error(t, err)
}
