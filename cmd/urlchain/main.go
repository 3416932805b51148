package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pathlight/urlchain/internal/analysis"
	"github.com/pathlight/urlchain/internal/config"
	"github.com/pathlight/urlchain/internal/debug"
	"github.com/pathlight/urlchain/internal/display"
	"github.com/pathlight/urlchain/internal/index"
	"github.com/pathlight/urlchain/internal/mcp"
	"github.com/pathlight/urlchain/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Scan.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, excludeFlags...)
	}
	if patterns := c.StringSlice("pattern"); len(patterns) > 0 {
		cfg.Resolve.NamePatterns = patterns
	}
	if c.IsSet("max-depth") {
		cfg.Resolve.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("workers") {
		cfg.Resolve.Workers = c.Int("workers")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("json") {
		cfg.Output.Format = "json"
	}
	if c.IsSet("show-partial") {
		cfg.Output.ShowPartial = c.Bool("show-partial")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "urlchain",
		Usage:                  "Static URL endpoint extraction for Swift codebases",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to scan (default: current directory)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write diagnostic logs to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "scan",
				Aliases: []string{"s"},
				Usage:   "Resolve URL construction chains and report endpoints",
				Flags:   scanFlags(),
				Action:  scanCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("urlchain %s\n", version.Version)
					return nil
				},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			// Bare invocation scans the current directory
			if c.NArg() == 0 {
				return scanCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "pattern",
			Aliases: []string{"p"},
			Usage:   "Declaration name globs to resolve (e.g., --pattern '*url*' --pattern 'api*')",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Include files matching glob patterns (e.g., --include 'Sources/**/*.swift')",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Exclude files matching glob patterns (e.g., --exclude '**/Tests/**')",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON (shorthand for --format json)",
		},
		&cli.IntFlag{
			Name:  "max-depth",
			Usage: "Maximum cross-file resolution depth",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Parallel resolution workers (0 = number of CPUs)",
		},
		&cli.BoolFlag{
			Name:  "show-partial",
			Usage: "Include endpoints with unresolved references",
		},
		&cli.BoolFlag{
			Name:  "sources",
			Usage: "List every contributing declaration site per endpoint",
		},
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Stay running and rescan when source files change",
		},
	}
}

func scanCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	analyzer, err := analysis.New(cfg)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	formatter := display.NewReportFormatter(display.FormatterOptions{
		Format:      cfg.Output.Format,
		ShowPartial: cfg.Output.ShowPartial,
		ShowSources: c.Bool("sources"),
	})

	if err := runScan(ctx, analyzer, formatter); err != nil {
		return err
	}
	if !c.Bool("watch") {
		return nil
	}
	return watchLoop(ctx, cfg, analyzer, formatter)
}

func runScan(ctx context.Context, analyzer *analysis.Analyzer, formatter *display.ReportFormatter) error {
	endpoints, err := analyzer.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Print(formatter.Format(endpoints))
	return nil
}

// watchLoop rescans after each debounced batch of source changes and
// reprints the full report. It returns when the context is cancelled.
func watchLoop(ctx context.Context, cfg *config.Config, analyzer *analysis.Analyzer, formatter *display.ReportFormatter) error {
	rescan := make(chan []string, 1)
	watcher, err := index.NewWatcher(cfg.Project.Root, index.DefaultDebounce, func(paths []string) {
		select {
		case rescan <- paths:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx)
	}()

	fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl-C to stop)\n", cfg.Project.Root)

	for {
		select {
		case <-ctx.Done():
			<-watchErr
			return nil
		case err := <-watchErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case paths := <-rescan:
			for _, path := range paths {
				analyzer.Invalidate(path)
			}
			if err := analyzer.Rebuild(); err != nil {
				fmt.Fprintf(os.Stderr, "Rescan failed: %v\n", err)
				continue
			}
			if err := runScan(ctx, analyzer, formatter); err != nil {
				if ctx.Err() != nil {
					<-watchErr
					return nil
				}
				fmt.Fprintf(os.Stderr, "Rescan failed: %v\n", err)
			}
		}
	}
}

func mcpCommand(c *cli.Context) error {
	debug.SetMCPMode(true)

	// Stdio belongs to the protocol, so --debug means a log file here
	if c.Bool("debug") {
		if _, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
		}
	}

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	server := mcp.NewServer(cfg)
	defer server.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
