package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config with toml tags; it exists so defaults stay in
// one place and the file only has to mention what it overrides.
type tomlConfig struct {
	Version int `toml:"version"`
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Scan struct {
		Include     []string `toml:"include"`
		Exclude     []string `toml:"exclude"`
		MaxFileSize int64    `toml:"max_file_size"`
		CacheSize   int      `toml:"cache_size"`
	} `toml:"scan"`
	Resolve struct {
		MaxDepth      int      `toml:"max_depth"`
		Workers       int      `toml:"workers"`
		Patterns      []string `toml:"patterns"`
		AppendMethods []string `toml:"append_methods"`
		LocatorTypes  []string `toml:"locator_types"`
		WrapperTypes  []string `toml:"wrapper_types"`
	} `toml:"resolve"`
	Output struct {
		Format      string `toml:"format"`
		ShowPartial *bool  `toml:"show_partial"`
	} `toml:"output"`
}

// LoadTOML attempts to load configuration from a .urlchain.toml file.
// (nil, nil) means no file was found and the caller should fall back.
func LoadTOML(projectRoot string) (*Config, error) {
	tomlPath := filepath.Join(projectRoot, TOMLConfigName)

	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(tomlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TOMLConfigName, err)
	}

	var raw tomlConfig
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default()
	// An unset root means the config file's own directory, not the cwd
	// that Default assumes; resolveRoot fills it in below.
	cfg.Project.Root = ""
	if raw.Version != 0 {
		cfg.Version = raw.Version
	}
	if raw.Project.Root != "" {
		cfg.Project.Root = raw.Project.Root
	}
	if raw.Project.Name != "" {
		cfg.Project.Name = raw.Project.Name
	}
	if len(raw.Scan.Include) > 0 {
		cfg.Scan.Include = raw.Scan.Include
	}
	if len(raw.Scan.Exclude) > 0 {
		cfg.Scan.Exclude = raw.Scan.Exclude
	}
	if raw.Scan.MaxFileSize > 0 {
		cfg.Scan.MaxFileSize = raw.Scan.MaxFileSize
	}
	if raw.Scan.CacheSize > 0 {
		cfg.Scan.CacheSize = raw.Scan.CacheSize
	}
	if raw.Resolve.MaxDepth > 0 {
		cfg.Resolve.MaxDepth = raw.Resolve.MaxDepth
	}
	if raw.Resolve.Workers > 0 {
		cfg.Resolve.Workers = raw.Resolve.Workers
	}
	if len(raw.Resolve.Patterns) > 0 {
		cfg.Resolve.NamePatterns = raw.Resolve.Patterns
	}
	if len(raw.Resolve.AppendMethods) > 0 {
		cfg.Resolve.AppendMethods = raw.Resolve.AppendMethods
	}
	if len(raw.Resolve.LocatorTypes) > 0 {
		cfg.Resolve.LocatorTypes = raw.Resolve.LocatorTypes
	}
	if len(raw.Resolve.WrapperTypes) > 0 {
		cfg.Resolve.WrapperTypes = raw.Resolve.WrapperTypes
	}
	if raw.Output.Format != "" {
		cfg.Output.Format = raw.Output.Format
	}
	if raw.Output.ShowPartial != nil {
		cfg.Output.ShowPartial = *raw.Output.ShowPartial
	}

	resolveRoot(cfg, projectRoot)
	return cfg, nil
}
