package analysis

import (
	"context"

	"github.com/pathlight/urlchain/internal/config"
	"github.com/pathlight/urlchain/internal/index"
	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/resolver"
	"github.com/pathlight/urlchain/internal/types"
)

// Analyzer wires one configuration into a ready-to-run analysis: a parse
// loader, a symbol index over the project root, and a resolution session.
// Every cache lives and dies with the Analyzer.
type Analyzer struct {
	cfg     *config.Config
	loader  *parser.Loader
	project *index.Index
	session *resolver.Session
}

// New builds the symbol index for the configured project root. This is
// the fatal path: an unusable root or empty index means no analysis.
func New(cfg *config.Config) (*Analyzer, error) {
	loader, err := parser.NewLoader(cfg.Scan.CacheSize)
	if err != nil {
		return nil, err
	}

	project, err := index.Build(cfg.Project.Root, loader, index.ScanOptions{
		Include:     cfg.Scan.Include,
		Exclude:     cfg.Scan.Exclude,
		MaxFileSize: cfg.Scan.MaxFileSize,
	})
	if err != nil {
		loader.Close()
		return nil, err
	}

	session := resolver.NewSession(resolver.Options{
		Index:        project,
		Loader:       loader,
		MaxDepth:     cfg.Resolve.MaxDepth,
		Workers:      cfg.Resolve.Workers,
		NamePatterns: cfg.Resolve.NamePatterns,
		Extractors:   cfg.ExtractorConfig(),
	})

	return &Analyzer{
		cfg:     cfg,
		loader:  loader,
		project: project,
		session: session,
	}, nil
}

// Run resolves all candidates and returns the aggregated endpoint report
func (a *Analyzer) Run(ctx context.Context) ([]types.ResolvedEndpoint, error) {
	return a.session.Run(ctx)
}

// Chains resolves all candidates without aggregating, keeping the
// per-declaration segment and status detail.
func (a *Analyzer) Chains(ctx context.Context) ([]*types.ConstructionChain, error) {
	return a.session.ResolveChains(ctx)
}

// Invalidate drops a changed file from the parse cache (watch mode)
func (a *Analyzer) Invalidate(path string) {
	a.loader.Invalidate(path)
}

// Rebuild re-indexes the project root, reusing the parse cache: files
// whose content hash is unchanged are not parsed again. Watch mode calls
// this after source changes.
func (a *Analyzer) Rebuild() error {
	project, err := index.Build(a.cfg.Project.Root, a.loader, index.ScanOptions{
		Include:     a.cfg.Scan.Include,
		Exclude:     a.cfg.Scan.Exclude,
		MaxFileSize: a.cfg.Scan.MaxFileSize,
	})
	if err != nil {
		return err
	}

	a.project = project
	a.session = resolver.NewSession(resolver.Options{
		Index:        project,
		Loader:       a.loader,
		MaxDepth:     a.cfg.Resolve.MaxDepth,
		Workers:      a.cfg.Resolve.Workers,
		NamePatterns: a.cfg.Resolve.NamePatterns,
		Extractors:   a.cfg.ExtractorConfig(),
	})
	return nil
}

// Stats exposes index counters for diagnostics
func (a *Analyzer) Stats() map[string]int {
	return a.project.Stats()
}

// Close releases the analyzer's parser resources
func (a *Analyzer) Close() {
	a.loader.Close()
}
