package index

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/pathlight/urlchain/internal/debug"
	pkgerrors "github.com/pathlight/urlchain/internal/errors"
	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

// similarTypeThreshold is the minimum Jaro-Winkler similarity for the
// fuzzy type-name fallback. High on purpose: the fallback exists for
// near-misses (module prefixes, pluralization), not guessing.
const similarTypeThreshold = 0.88

// Index is an in-memory symbol index over one Swift project, built by
// parsing every discovered file once. It satisfies resolver.SymbolIndex
// and the optional resolver.TypeSuggester capability. Read-only after
// Build, so queries need no locking beyond the build guard.
type Index struct {
	root string

	mu          sync.RWMutex
	decls       []types.Declaration
	annotations []string                  // declared type per decl ("" if none)
	declsByName map[string][]int          // lower-cased name -> decl indices
	members     map[string]map[string]int // typeName -> memberName -> decl index
	conformance map[string][]string       // protocol name -> conforming types
	declTypes   map[string]map[string]string
	typeNames   []string
	typeNameSet map[string]bool
	fileCount   int
}

// Build discovers, parses and indexes every Swift file under root. File
// failures are contained; a root that yields no indexable files at all is
// the fatal case.
func Build(root string, loader *parser.Loader, opts ScanOptions) (*Index, error) {
	files, err := DiscoverFiles(root, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, pkgerrors.NewScanError("discover", root, errors.New("no swift files found"))
	}

	idx := &Index{
		root:        root,
		declsByName: make(map[string][]int),
		members:     make(map[string]map[string]int),
		conformance: make(map[string][]string),
		declTypes:   make(map[string]map[string]string),
		typeNameSet: make(map[string]bool),
	}

	var loadErrs []error
	for _, file := range files {
		syntax, err := loader.Load(file)
		if err != nil {
			debug.LogIndex("skipping %s: %v\n", file, err)
			loadErrs = append(loadErrs, err)
			continue
		}
		idx.addFile(syntax)
	}

	if idx.fileCount == 0 {
		return nil, pkgerrors.NewMultiError(loadErrs)
	}

	debug.LogIndex("indexed %d files, %d declarations, %d types\n",
		idx.fileCount, len(idx.decls), len(idx.typeNames))
	return idx, nil
}

// addFile folds one lowered file into the index
func (idx *Index) addFile(syntax *parser.FileSyntax) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.fileCount++

	for _, td := range syntax.Types {
		if !idx.typeNameSet[td.Name] {
			idx.typeNameSet[td.Name] = true
			idx.typeNames = append(idx.typeNames, td.Name)
		}
		for _, parent := range td.Inherits {
			idx.conformance[parent] = append(idx.conformance[parent], td.Name)
		}
	}

	for i := range syntax.Decls {
		decl := &syntax.Decls[i]
		pos := len(idx.decls)
		idx.decls = append(idx.decls, decl.Decl)
		idx.annotations = append(idx.annotations, decl.TypeAnnotation)

		lower := strings.ToLower(decl.Decl.Name)
		idx.declsByName[lower] = append(idx.declsByName[lower], pos)

		if owner := decl.Decl.OwnerType; owner != "" {
			if idx.members[owner] == nil {
				idx.members[owner] = make(map[string]int)
			}
			if _, exists := idx.members[owner][decl.Decl.Name]; !exists {
				idx.members[owner][decl.Decl.Name] = pos
			}
		}

		if decl.TypeAnnotation != "" {
			if idx.declTypes[syntax.Path] == nil {
				idx.declTypes[syntax.Path] = make(map[string]string)
			}
			idx.declTypes[syntax.Path][decl.Decl.Name] = decl.TypeAnnotation
		}
	}
}

// FindDeclarations enumerates declarations whose name matches the glob
// pattern, case-insensitively. An empty kind list matches every kind.
func (idx *Index) FindDeclarations(namePattern string, kinds []types.SymbolKind) ([]types.Declaration, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pattern := strings.ToLower(namePattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, pkgerrors.NewIndexError(namePattern, err)
	}

	kindSet := make(map[types.SymbolKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	var result []types.Declaration
	for i, decl := range idx.decls {
		if len(kinds) > 0 && !kindSet[decl.Kind] {
			continue
		}
		matched, _ := path.Match(pattern, strings.ToLower(decl.Name))
		if matched {
			result = append(result, idx.decls[i])
		}
	}
	return result, nil
}

// FindMember locates a member declared within the named type (including
// members added by extensions). Not found is (nil, nil).
func (idx *Index) FindMember(typeName, memberName string) (*types.Declaration, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if byName, ok := idx.members[typeName]; ok {
		if pos, ok := byName[memberName]; ok {
			decl := idx.decls[pos]
			return &decl, nil
		}
	}
	return nil, nil
}

// FindConformingTypes lists types whose inheritance clause names the
// given protocol.
func (idx *Index) FindConformingTypes(interfaceName string) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	conforming := idx.conformance[interfaceName]
	result := make([]string, len(conforming))
	copy(result, conforming)
	return result, nil
}

// TypeOf reports the declared type of a name, preferring the annotation
// found in the given file, then any annotated declaration of that name.
func (idx *Index) TypeOf(declarationName, inFile string) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if absPath, err := filepath.Abs(inFile); err == nil {
		inFile = absPath
	}
	if byName, ok := idx.declTypes[inFile]; ok {
		if typeName, ok := byName[declarationName]; ok {
			return typeName, nil
		}
	}

	for _, pos := range idx.declsByName[strings.ToLower(declarationName)] {
		if idx.decls[pos].Name == declarationName && idx.annotations[pos] != "" {
			return idx.annotations[pos], nil
		}
	}
	return "", nil
}

// SimilarType proposes the closest known type name to the query. This is
// the heuristic last resort behind exact and conformance lookups.
func (idx *Index) SimilarType(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	best := ""
	bestScore := float32(similarTypeThreshold)
	for _, candidate := range idx.typeNames {
		score, err := edlib.StringsSimilarity(name, candidate, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best, best != ""
}

// Stats returns index size counters for diagnostics
func (idx *Index) Stats() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return map[string]int{
		"files":        idx.fileCount,
		"declarations": len(idx.decls),
		"types":        len(idx.typeNames),
		"protocols":    len(idx.conformance),
	}
}
