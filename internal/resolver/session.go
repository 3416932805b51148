package resolver

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pathlight/urlchain/internal/debug"
	pkgerrors "github.com/pathlight/urlchain/internal/errors"
	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

// DefaultNamePatterns selects the declarations that usually carry URL
// construction in an app codebase.
var DefaultNamePatterns = []string{"*url*", "*endpoint*", "*request*", "*route*"}

// candidateKinds are the declaration kinds we enumerate by default
var candidateKinds = []types.SymbolKind{
	types.SymbolKindVariable,
	types.SymbolKindProperty,
	types.SymbolKindStaticProperty,
	types.SymbolKindClassProperty,
}

// Options configures one analysis session
type Options struct {
	Index        SymbolIndex
	Loader       *parser.Loader
	MaxDepth     int
	Workers      int // 0 = NumCPU
	NamePatterns []string
	Extractors   ExtractorConfig
}

// Session owns the state of one full-project analysis: the symbol index,
// the file loader, the extractor set and the shared cross-scope cache.
// All per-run caches die with the session; nothing persists.
type Session struct {
	opts       Options
	extractors []PatternExtractor
	cross      *CrossScopeResolver
}

// NewSession creates an analysis session over an index and loader
func NewSession(opts Options) *Session {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if len(opts.NamePatterns) == 0 {
		opts.NamePatterns = DefaultNamePatterns
	}

	extractors := DefaultExtractors(opts.Extractors)
	return &Session{
		opts:       opts,
		extractors: extractors,
		cross:      NewCrossScopeResolver(opts.Index, opts.Loader, extractors, opts.MaxDepth),
	}
}

// Run resolves every candidate declaration and aggregates the chains into
// endpoint records. Only a failing candidate enumeration is fatal; every
// per-declaration failure degrades to a partial or empty chain.
func (s *Session) Run(ctx context.Context) ([]types.ResolvedEndpoint, error) {
	candidates, err := s.enumerate()
	if err != nil {
		return nil, err
	}
	debug.LogResolve("resolving %d candidate declarations\n", len(candidates))

	var mu sync.Mutex
	chains := make([]*types.ConstructionChain, 0, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, decl := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chain := s.resolveOne(decl)
			if chain != nil {
				mu.Lock()
				chains = append(chains, chain)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Aggregate(chains), nil
}

// ResolveChains is Run without the aggregation step, for consumers that
// want the raw chains.
func (s *Session) ResolveChains(ctx context.Context) ([]*types.ConstructionChain, error) {
	candidates, err := s.enumerate()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	chains := make([]*types.ConstructionChain, 0, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, decl := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if chain := s.resolveOne(decl); chain != nil {
				mu.Lock()
				chains = append(chains, chain)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chains, nil
}

// enumerate runs the initial candidate queries; its failure is the one
// fatal index condition in a run.
func (s *Session) enumerate() ([]types.Declaration, error) {
	seen := make(map[types.Declaration]bool)
	var candidates []types.Declaration

	for _, pattern := range s.opts.NamePatterns {
		decls, err := s.opts.Index.FindDeclarations(pattern, candidateKinds)
		if err != nil {
			return nil, pkgerrors.NewIndexError(pattern, err).WithFatal(true)
		}
		for _, decl := range decls {
			if !seen[decl] {
				seen[decl] = true
				candidates = append(candidates, decl)
			}
		}
	}

	if len(candidates) == 0 {
		debug.LogResolve("no candidate declarations matched %v\n", s.opts.NamePatterns)
	}
	return candidates, nil
}

// resolveOne resolves a single declaration, containing every failure to
// that declaration.
func (s *Session) resolveOne(decl types.Declaration) *types.ConstructionChain {
	file, err := s.opts.Loader.Load(decl.File)
	if err != nil {
		debug.LogResolve("skipping %s: %v\n", decl.String(), err)
		return nil
	}

	target := findDecl(file, &decl)
	if target == nil {
		debug.LogResolve("declaration %s not found after reparse\n", decl.String())
		return nil
	}
	if target.Initializer == nil {
		return nil
	}

	local := NewFileResolver(file, s.extractors, s.cross)
	return local.Resolve(target)
}

// IsFatal reports whether an analysis error must abort the run
func IsFatal(err error) bool {
	var indexErr *pkgerrors.IndexError
	if errors.As(err, &indexErr) {
		return indexErr.IsFatal()
	}
	return true
}
