package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pathlight/urlchain/internal/debug"
	pkgerrors "github.com/pathlight/urlchain/internal/errors"
)

// DefaultMaxFileSize skips generated monsters that would only slow parsing
const DefaultMaxFileSize = 4 * 1024 * 1024

// defaultExcludes are directories that never contain first-party Swift
// source worth indexing.
var defaultExcludes = []string{
	"**/.git/**",
	"**/.build/**",
	"**/DerivedData/**",
	"**/Pods/**",
	"**/Carthage/**",
	"**/.swiftpm/**",
}

// excludedDirNames prunes well-known dependency and build directories
// regardless of nesting depth.
var excludedDirNames = map[string]bool{
	".git":        true,
	".build":      true,
	".swiftpm":    true,
	"DerivedData": true,
	"Pods":        true,
	"Carthage":    true,
}

// ScanOptions controls source file discovery
type ScanOptions struct {
	Include     []string // glob patterns relative to root; empty = all .swift files
	Exclude     []string // glob patterns, added to the built-in exclusions
	MaxFileSize int64    // 0 = DefaultMaxFileSize
}

// DiscoverFiles walks the project root and returns the Swift files to
// index, sorted for deterministic processing. Unreadable subtrees are
// skipped with a diagnostic; only an unwalkable root is an error.
func DiscoverFiles(root string, opts ScanOptions) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, pkgerrors.NewScanError("resolve", root, err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, pkgerrors.NewScanError("stat", absRoot, err)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	excludes := append(append([]string{}, defaultExcludes...), opts.Exclude...)

	var files []string
	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			debug.LogScan("skipping %s: %v\n", path, err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if path == absRoot {
				return nil
			}
			if excludedDirNames[entry.Name()] || matchesAny(excludes, relPath+"/") || matchesAny(excludes, relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(path, ".swift") {
			return nil
		}
		if matchesAny(excludes, relPath) {
			return nil
		}
		if len(opts.Include) > 0 && !matchesAny(opts.Include, relPath) {
			return nil
		}
		if info, err := entry.Info(); err == nil && info.Size() > maxSize {
			debug.LogScan("skipping %s: %d bytes exceeds limit\n", relPath, info.Size())
			return nil
		}

		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, pkgerrors.NewScanError("walk", absRoot, walkErr)
	}

	sort.Strings(files)
	debug.LogScan("discovered %d swift files under %s\n", len(files), absRoot)
	return files, nil
}

// matchesAny checks a path against glob patterns, both as a full relative
// path and by base name.
func matchesAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, filepath.Base(relPath)); err == nil && matched {
			return true
		}
	}
	return false
}
