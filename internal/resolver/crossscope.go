package resolver

import (
	"sort"
	"strings"
	"sync"

	"github.com/pathlight/urlchain/internal/debug"
	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

// DefaultMaxDepth caps cross-file recursion; pathological reference
// graphs abort the affected branch instead of the run.
const DefaultMaxDepth = 10

// SymbolIndex is the narrow query contract the resolution engine consumes
// from the symbol index collaborator. Implementations must be safe for
// concurrent use.
type SymbolIndex interface {
	// FindDeclarations enumerates declarations whose name matches the
	// glob pattern (case-insensitive) and whose kind is in kinds
	// (empty = any).
	FindDeclarations(namePattern string, kinds []types.SymbolKind) ([]types.Declaration, error)

	// FindMember locates a member declared within the named type.
	// A nil declaration with nil error means "not found".
	FindMember(typeName, memberName string) (*types.Declaration, error)

	// FindConformingTypes lists concrete types whose inheritance clause
	// names the given protocol.
	FindConformingTypes(interfaceName string) ([]string, error)

	// TypeOf is a best-effort declared-type query for a name, preferring
	// declarations in the given file.
	TypeOf(declarationName, inFile string) (string, error)
}

// TypeSuggester is an optional index capability: propose the closest
// known type name when an exact lookup failed. Purely heuristic.
type TypeSuggester interface {
	SimilarType(name string) (string, bool)
}

// memberKey is the memoization key for one cross-scope resolution; it is
// stable for the lifetime of an analysis run.
type memberKey struct {
	TypeName   string
	MemberName string
}

// MemberResult is the immutable outcome of one (type, member) resolution
type MemberResult struct {
	Segments      []types.Segment
	BaseReference string
	Status        types.ResolutionStatus
}

type crossEntry struct {
	done   chan struct{}
	result MemberResult
}

// CrossScopeResolver resolves object.member references that cross a type
// boundary: it infers the object's declared type, finds the member's
// defining file through the symbol index, and runs local resolution
// there. Results are memoized per (type, member); the cache is shared by
// all workers of one analysis run.
type CrossScopeResolver struct {
	index      SymbolIndex
	loader     *parser.Loader
	extractors []PatternExtractor
	maxDepth   int

	mu      sync.Mutex
	entries map[memberKey]*crossEntry
}

// NewCrossScopeResolver creates a resolver around an index and a loader.
// maxDepth <= 0 selects DefaultMaxDepth.
func NewCrossScopeResolver(index SymbolIndex, loader *parser.Loader, extractors []PatternExtractor, maxDepth int) *CrossScopeResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &CrossScopeResolver{
		index:      index,
		loader:     loader,
		extractors: extractors,
		maxDepth:   maxDepth,
		entries:    make(map[memberKey]*crossEntry),
	}
}

// ResolveMember resolves object.member from originFile. Failures are
// results, never errors: an open or depth-exceeded status with no
// segments tells the caller to leave its chain partial.
func (c *CrossScopeResolver) ResolveMember(object *parser.Expr, memberName, originFile string, rc *resolveContext) MemberResult {
	if rc.depth >= c.maxDepth {
		debug.LogCross("depth cap (%d) hit resolving %s.%s from %s\n", c.maxDepth, object.Render(), memberName, originFile)
		return MemberResult{Status: types.ResolutionDepthExceeded}
	}

	typeName := c.inferType(object, originFile)
	if typeName == "" {
		debug.LogCross("no type for %s (member %s) in %s\n", object.Render(), memberName, originFile)
		return MemberResult{Status: types.ResolutionOpen}
	}

	key := memberKey{TypeName: typeName, MemberName: memberName}
	if rc.crossVisited[key] {
		debug.LogCross("cycle on %s.%s\n", typeName, memberName)
		return MemberResult{Status: types.ResolutionCyclic}
	}

	c.mu.Lock()
	entry, exists := c.entries[key]
	if exists {
		c.mu.Unlock()
		select {
		case <-entry.done:
			return entry.result
		default:
			// Another branch is computing this key right now; resolve
			// independently rather than risk waiting on a cycle that
			// spans goroutines. The memoized result still wins later.
			return c.compute(key, rc)
		}
	}
	entry = &crossEntry{done: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	entry.result = c.compute(key, rc)

	// Depth-limited and cyclic outcomes depend on where this branch
	// started, so they are not facts about (type, member); drop them
	// from the cache.
	if entry.result.Status == types.ResolutionDepthExceeded || entry.result.Status == types.ResolutionCyclic {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}
	close(entry.done)

	return entry.result
}

// compute performs the uncached member resolution
func (c *CrossScopeResolver) compute(key memberKey, rc *resolveContext) MemberResult {
	rc.crossVisited[key] = true
	defer delete(rc.crossVisited, key)

	decl := c.lookupMember(key.TypeName, key.MemberName)
	if decl == nil {
		debug.LogCross("member %s.%s not found\n", key.TypeName, key.MemberName)
		return MemberResult{Status: types.ResolutionOpen}
	}

	file, err := c.loader.Load(decl.File)
	if err != nil {
		debug.LogCross("cannot load %s: %v\n", decl.File, err)
		return MemberResult{Status: types.ResolutionOpen}
	}

	target := findDecl(file, decl)
	if target == nil || target.Initializer == nil {
		debug.LogCross("member %s.%s has no resolvable initializer in %s\n", key.TypeName, key.MemberName, decl.File)
		return MemberResult{Status: types.ResolutionOpen}
	}

	local := NewFileResolver(file, c.extractors, c)
	chain := local.resolveDecl(target, rc.child())

	// Segments gathered inside a reference cycle would splice in once
	// per lap; the cycle itself is the only reportable fact.
	if chain.Status == types.ResolutionCyclic {
		return MemberResult{Status: types.ResolutionCyclic}
	}

	return MemberResult{
		Segments:      chain.Segments,
		BaseReference: chain.BaseReference,
		Status:        chain.Status,
	}
}

// lookupMember finds the defining declaration for type.member, broadening
// to conforming types when the type itself (typically a protocol) lacks
// the member, and to a fuzzy type-name match as a last resort. The first
// conforming match in sorted order wins; multiple matches are logged as
// an ambiguity, not resolved.
func (c *CrossScopeResolver) lookupMember(typeName, memberName string) *types.Declaration {
	decl, err := c.index.FindMember(typeName, memberName)
	if err != nil {
		debug.LogCross("FindMember(%s, %s) failed: %v\n", typeName, memberName, err)
	}
	if decl != nil {
		return decl
	}

	conforming, err := c.index.FindConformingTypes(typeName)
	if err != nil {
		debug.LogCross("FindConformingTypes(%s) failed: %v\n", typeName, err)
	}
	sort.Strings(conforming)

	var matches []*types.Declaration
	for _, concrete := range conforming {
		if d, _ := c.index.FindMember(concrete, memberName); d != nil {
			matches = append(matches, d)
		}
	}
	if len(matches) > 1 {
		debug.LogCross("ambiguous member %s.%s: %d conforming types define it, using %s\n",
			typeName, memberName, len(matches), matches[0].OwnerType)
	}
	if len(matches) > 0 {
		return matches[0]
	}

	if suggester, ok := c.index.(TypeSuggester); ok {
		if alt, ok := suggester.SimilarType(typeName); ok && alt != typeName {
			debug.LogCross("retrying %s.%s as %s.%s (fuzzy type match)\n", typeName, memberName, alt, memberName)
			if d, _ := c.index.FindMember(alt, memberName); d != nil {
				return d
			}
		}
	}

	return nil
}

// inferType determines the declared type of the object expression:
// a local type annotation wins, then the index's TypeOf query, then the
// shape of the object's own initializer (constructor callee or
// static-member receiver).
func (c *CrossScopeResolver) inferType(object *parser.Expr, originFile string) string {
	name, ok := object.LocalName()
	if !ok {
		if object != nil && object.Kind == parser.ExprMemberAccess {
			name = object.Name
		} else {
			return ""
		}
	}

	var localDecl *parser.PropertyDecl
	if file, err := c.loader.Load(originFile); err == nil {
		localDecl = file.FirstDeclNamed(name)
	}

	if localDecl != nil && localDecl.TypeAnnotation != "" {
		return normalizeTypeName(localDecl.TypeAnnotation)
	}

	if typeName, err := c.index.TypeOf(name, originFile); err == nil && typeName != "" {
		return normalizeTypeName(typeName)
	}

	if localDecl != nil && localDecl.Initializer != nil {
		init := localDecl.Initializer
		switch init.Kind {
		case parser.ExprCall:
			if init.Base.IsIdentifier() {
				return normalizeTypeName(init.Base.Name)
			}
		case parser.ExprMemberAccess:
			// Singleton access like APIService.shared
			if init.Base.IsIdentifier() {
				return normalizeTypeName(init.Base.Name)
			}
		}
	}

	return ""
}

// normalizeTypeName strips optional markers and module qualifiers
func normalizeTypeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, "?!")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// findDecl locates the lowered declaration matching an index record
func findDecl(file *parser.FileSyntax, decl *types.Declaration) *parser.PropertyDecl {
	candidates := file.DeclsNamed(decl.Name)
	for _, c := range candidates {
		if decl.OwnerType != "" && c.Decl.OwnerType == decl.OwnerType {
			return c
		}
	}
	for _, c := range candidates {
		if c.Decl.Line == decl.Line {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}
