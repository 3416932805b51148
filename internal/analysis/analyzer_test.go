package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/urlchain/internal/config"
)

func writeProjectFile(t *testing.T, root, name, source string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

func newTestAnalyzer(t *testing.T, root string) *Analyzer {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAnalyzer_Run(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "api.swift", `
struct APIService {
    let base = URL(string: "https://api.example.com")
    let loginURL = base.appendingPathComponent("login")
}
`)

	a := newTestAnalyzer(t, root)

	endpoints, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "https://api.example.com/login", endpoints[0].FullValue)

	stats := a.Stats()
	assert.Equal(t, 1, stats["files"])
}

func TestAnalyzer_RebuildPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	path := writeProjectFile(t, root, "api.swift", `
let pingURL = URL(string: "https://api.example.com/ping")
`)

	a := newTestAnalyzer(t, root)

	endpoints, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "https://api.example.com/ping", endpoints[0].FullValue)

	writeProjectFile(t, root, "api.swift", `
let pingURL = URL(string: "https://api.example.com/v2/ping")
`)
	a.Invalidate(path)
	require.NoError(t, a.Rebuild())

	endpoints, err = a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "https://api.example.com/v2/ping", endpoints[0].FullValue)
}

func TestAnalyzer_Chains(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "api.swift", `
let profileURL = "\(injectedBase)/profile"
`)

	a := newTestAnalyzer(t, root)

	chains, err := a.Chains(context.Background())
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "profileURL", chains[0].Declaration.Name)
	assert.True(t, chains[0].IsPartial())
}

func TestAnalyzer_EmptyRootFails(t *testing.T) {
	cfg := config.Default()
	cfg.Project.Root = t.TempDir()

	_, err := New(cfg)
	assert.Error(t, err)
}
