package parser

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pathlight/urlchain/internal/debug"
	pkgerrors "github.com/pathlight/urlchain/internal/errors"
)

// DefaultCacheSize bounds how many lowered files the loader keeps
const DefaultCacheSize = 512

// Loader parses files on demand and caches the lowered result per path,
// so a file referenced by many cross-scope lookups is parsed once.
// Safe for concurrent use.
type Loader struct {
	parser *Parser
	cache  *lru.Cache[string, *FileSyntax]

	mu         sync.Mutex // serializes the underlying parser
	parseCount atomic.Int64
}

// NewLoader creates a loader with the given cache capacity (0 = default)
func NewLoader(cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	parser, err := NewParser()
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, *FileSyntax](cacheSize)
	if err != nil {
		parser.Close()
		return nil, err
	}

	return &Loader{parser: parser, cache: cache}, nil
}

// Close releases the loader's parser
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parser.Close()
}

// Load returns the lowered syntax for a file, from cache when the
// on-disk content is unchanged.
func (l *Loader) Load(path string) (*FileSyntax, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, pkgerrors.NewFileError("read", absPath, err)
	}

	hash := xxhash.Sum64(content)
	if cached, ok := l.cache.Get(absPath); ok && cached.Hash == hash {
		return cached, nil
	}

	file, err := l.parse(absPath, content)
	if err != nil {
		return nil, err
	}

	l.cache.Add(absPath, file)
	return file, nil
}

// LoadBytes lowers in-memory content attributed to path and caches it.
// Used by tests and by the index while scanning.
func (l *Loader) LoadBytes(path string, content []byte) (*FileSyntax, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	hash := xxhash.Sum64(content)
	if cached, ok := l.cache.Get(absPath); ok && cached.Hash == hash {
		return cached, nil
	}

	file, err := l.parse(absPath, content)
	if err != nil {
		return nil, err
	}

	l.cache.Add(absPath, file)
	return file, nil
}

// parse runs the tree-sitter parser under the loader's lock
func (l *Loader) parse(path string, content []byte) (*FileSyntax, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.parseCount.Add(1)
	debug.LogScan("parsing %s (%d bytes)\n", path, len(content))
	return l.parser.ParseBytes(path, content)
}

// ParseCount reports how many real parses have happened (cache misses)
func (l *Loader) ParseCount() int64 {
	return l.parseCount.Load()
}

// Invalidate drops a path from the cache (watch mode uses this)
func (l *Loader) Invalidate(path string) {
	if absPath, err := filepath.Abs(path); err == nil {
		path = absPath
	}
	l.cache.Remove(path)
}
