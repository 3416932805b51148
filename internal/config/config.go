package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	pkgerrors "github.com/pathlight/urlchain/internal/errors"
	"github.com/pathlight/urlchain/internal/resolver"
)

// Default file names looked up in the project root, in order
const (
	KDLConfigName  = ".urlchain.kdl"
	TOMLConfigName = ".urlchain.toml"
)

// Config is the full analysis configuration
type Config struct {
	Version int
	Project Project
	Scan    Scan
	Resolve Resolve
	Output  Output
}

// Project identifies the codebase under analysis
type Project struct {
	Root string
	Name string
}

// Scan controls source file discovery
type Scan struct {
	Include     []string
	Exclude     []string
	MaxFileSize int64
	CacheSize   int // lowered-file LRU capacity
}

// Resolve controls the resolution engine
type Resolve struct {
	MaxDepth      int      // cross-scope recursion cap
	Workers       int      // 0 = NumCPU
	NamePatterns  []string // candidate declaration globs
	AppendMethods []string
	LocatorTypes  []string
	WrapperTypes  []string
}

// Output controls report rendering
type Output struct {
	Format      string // "text" or "json"
	ShowPartial bool
}

// Default returns the configuration used when no file is present
func Default() *Config {
	root, _ := os.Getwd()
	if root == "" {
		root = "."
	}

	extractors := resolver.DefaultExtractorConfig()
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Scan: Scan{
			Include:     []string{},
			Exclude:     []string{},
			MaxFileSize: 0, // scanner default
			CacheSize:   0, // loader default
		},
		Resolve: Resolve{
			MaxDepth:      resolver.DefaultMaxDepth,
			Workers:       runtime.NumCPU(),
			NamePatterns:  append([]string{}, resolver.DefaultNamePatterns...),
			AppendMethods: extractors.AppendMethods,
			LocatorTypes:  extractors.LocatorTypes,
			WrapperTypes:  extractors.WrapperTypes,
		},
		Output: Output{
			Format:      "text",
			ShowPartial: true,
		},
	}
}

// Load reads configuration for a project root: .urlchain.kdl first, then
// .urlchain.toml, then defaults. The returned config always has an
// absolute project root.
func Load(projectRoot string) (*Config, error) {
	if projectRoot == "" {
		projectRoot = "."
	}

	cfg, err := LoadKDL(projectRoot)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg, err = LoadTOML(projectRoot)
		if err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = Default()
		cfg.Project.Root = projectRoot
	}

	if absRoot, err := filepath.Abs(cfg.Project.Root); err == nil {
		cfg.Project.Root = absRoot
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honor
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return pkgerrors.NewConfigError("project.root", "", errors.New("must not be empty"))
	}
	if c.Resolve.MaxDepth < 1 || c.Resolve.MaxDepth > 100 {
		return pkgerrors.NewConfigError("resolve.max_depth", fmt.Sprint(c.Resolve.MaxDepth),
			errors.New("must be between 1 and 100"))
	}
	if c.Resolve.Workers < 0 || c.Resolve.Workers > 1024 {
		return pkgerrors.NewConfigError("resolve.workers", fmt.Sprint(c.Resolve.Workers),
			errors.New("must be between 0 and 1024"))
	}
	if c.Output.Format != "text" && c.Output.Format != "json" {
		return pkgerrors.NewConfigError("output.format", c.Output.Format,
			errors.New("must be text or json"))
	}
	return nil
}

// ExtractorConfig maps the config onto the resolver's extractor settings
func (c *Config) ExtractorConfig() resolver.ExtractorConfig {
	return resolver.ExtractorConfig{
		AppendMethods: c.Resolve.AppendMethods,
		LocatorTypes:  c.Resolve.LocatorTypes,
		WrapperTypes:  c.Resolve.WrapperTypes,
	}
}
