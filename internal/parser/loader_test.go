package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_CachesByContentHash(t *testing.T) {
	loader, err := NewLoader(0)
	require.NoError(t, err)
	defer loader.Close()

	path := filepath.Join(t.TempDir(), "api.swift")
	require.NoError(t, os.WriteFile(path, []byte(`let a = "one"`), 0644))

	first, err := loader.Load(path)
	require.NoError(t, err)
	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), loader.ParseCount())

	// Changed content forces a reparse
	require.NoError(t, os.WriteFile(path, []byte(`let a = "two"`), 0644))
	third, err := loader.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, int64(2), loader.ParseCount())
}

func TestLoader_Invalidate(t *testing.T) {
	loader, err := NewLoader(0)
	require.NoError(t, err)
	defer loader.Close()

	path := filepath.Join(t.TempDir(), "api.swift")
	require.NoError(t, os.WriteFile(path, []byte(`let a = "one"`), 0644))

	_, err = loader.Load(path)
	require.NoError(t, err)
	loader.Invalidate(path)
	_, err = loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loader.ParseCount())
}

func TestLoader_MissingFile(t *testing.T) {
	loader, err := NewLoader(0)
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.Load(filepath.Join(t.TempDir(), "nope.swift"))
	assert.Error(t, err)
}

func TestLoadBytes(t *testing.T) {
	loader, err := NewLoader(0)
	require.NoError(t, err)
	defer loader.Close()

	file, err := loader.LoadBytes("inmemory.swift", []byte(`let pingURL = "https://api.example.com/ping"`))
	require.NoError(t, err)
	require.NotNil(t, file.FirstDeclNamed("pingURL"))
}
