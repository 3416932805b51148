package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pathlight/urlchain/internal/analysis"
	"github.com/pathlight/urlchain/internal/config"
	"github.com/pathlight/urlchain/internal/debug"
	"github.com/pathlight/urlchain/internal/types"
	"github.com/pathlight/urlchain/internal/version"
)

// Server exposes endpoint resolution over MCP stdio. The analyzer is
// built on the first tool call so that server startup never blocks on
// indexing a large project.
type Server struct {
	cfg    *config.Config
	server *mcp.Server

	mu       sync.Mutex
	analyzer *analysis.Analyzer
}

// NewServer creates an MCP server bound to one project configuration
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "urlchain-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP requests on stdio until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	debug.SetMCPMode(true)
	debug.Log("mcp", "serving on stdio, project root %s", s.cfg.Project.Root)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close releases the analyzer if one was built
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzer != nil {
		s.analyzer.Close()
		s.analyzer = nil
	}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "scan_endpoints",
		Description: "Scan the project for statically constructed URL endpoints. Resolves variable and property chains across files and returns the aggregated endpoint list as JSON.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"patterns": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Declaration name globs to resolve (defaults to *url*, *endpoint*, *request*, *route*)",
				},
				"show_partial": {
					Type:        "boolean",
					Description: "Include endpoints with unresolved references (default true)",
				},
			},
		},
	}, s.handleScanEndpoints)

	s.server.AddTool(&mcp.Tool{
		Name:        "resolve_chain",
		Description: "Resolve the construction chain of declarations matching a name glob. Returns per-declaration segments, base references, resolution status, and any unresolved member accesses.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Declaration name or glob, case-insensitive (e.g. 'profileURL', '*endpoint*')",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleResolveChain)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_stats",
		Description: "Return symbol index statistics for the project: files, declarations, types, protocol conformances.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleIndexStats)

	s.server.AddTool(&mcp.Tool{
		Name:        "reindex",
		Description: "Re-scan the project root, picking up added, changed, and deleted files. Unchanged files are not re-parsed.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleReindex)
}

// ensureAnalyzer builds the analyzer on first use
func (s *Server) ensureAnalyzer() (*analysis.Analyzer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzer != nil {
		return s.analyzer, nil
	}

	a, err := analysis.New(s.cfg)
	if err != nil {
		return nil, err
	}
	s.analyzer = a
	return a, nil
}

type scanEndpointsParams struct {
	Patterns    []string `json:"patterns"`
	ShowPartial *bool    `json:"show_partial"`
}

type endpointReport struct {
	Endpoints []types.ResolvedEndpoint `json:"endpoints"`
	Count     int                      `json:"count"`
}

func (s *Server) handleScanEndpoints(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params scanEndpointsParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult("scan_endpoints", fmt.Errorf("invalid parameters: %w", err)), nil
		}
	}

	if len(params.Patterns) > 0 {
		// Per-call pattern overrides need their own session but can share
		// the indexed analyzer's config; cheapest is a scoped config copy.
		cfg := *s.cfg
		cfg.Resolve.NamePatterns = params.Patterns
		scoped, err := analysis.New(&cfg)
		if err != nil {
			return errorResult("scan_endpoints", err), nil
		}
		defer scoped.Close()
		return s.runScan(ctx, scoped, params)
	}

	a, err := s.ensureAnalyzer()
	if err != nil {
		return errorResult("scan_endpoints", err), nil
	}
	return s.runScan(ctx, a, params)
}

func (s *Server) runScan(ctx context.Context, a *analysis.Analyzer, params scanEndpointsParams) (*mcp.CallToolResult, error) {
	endpoints, err := a.Run(ctx)
	if err != nil {
		return errorResult("scan_endpoints", err), nil
	}

	showPartial := s.cfg.Output.ShowPartial
	if params.ShowPartial != nil {
		showPartial = *params.ShowPartial
	}
	if !showPartial {
		kept := endpoints[:0]
		for _, ep := range endpoints {
			if !ep.IsPartial {
				kept = append(kept, ep)
			}
		}
		endpoints = kept
	}

	return jsonResult(endpointReport{Endpoints: endpoints, Count: len(endpoints)})
}

type resolveChainParams struct {
	Name string `json:"name"`
}

type chainReport struct {
	Name          string                      `json:"name"`
	File          string                      `json:"file"`
	Line          int                         `json:"line"`
	OwnerType     string                      `json:"owner_type,omitempty"`
	Value         string                      `json:"value"`
	Status        string                      `json:"status"`
	BaseReference string                      `json:"base_reference,omitempty"`
	Method        string                      `json:"method,omitempty"`
	Segments      []types.Segment             `json:"segments"`
	Unresolved    []types.UnresolvedReference `json:"unresolved,omitempty"`
}

func (s *Server) handleResolveChain(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params resolveChainParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("resolve_chain", fmt.Errorf("invalid parameters: %w", err)), nil
	}
	if params.Name == "" {
		return errorResult("resolve_chain", fmt.Errorf("name is required")), nil
	}

	a, err := s.ensureAnalyzer()
	if err != nil {
		return errorResult("resolve_chain", err), nil
	}

	chains, err := a.Chains(ctx)
	if err != nil {
		return errorResult("resolve_chain", err), nil
	}

	pattern := strings.ToLower(params.Name)
	reports := make([]chainReport, 0)
	for _, chain := range chains {
		matched, merr := path.Match(pattern, strings.ToLower(chain.Declaration.Name))
		if merr != nil {
			return errorResult("resolve_chain", fmt.Errorf("invalid name glob %q: %w", params.Name, merr)), nil
		}
		if !matched {
			continue
		}
		reports = append(reports, chainReport{
			Name:          chain.Declaration.Name,
			File:          chain.Declaration.File,
			Line:          chain.Declaration.Line,
			OwnerType:     chain.Declaration.OwnerType,
			Value:         chain.FullValue(),
			Status:        chain.Status.String(),
			BaseReference: chain.BaseReference,
			Method:        chain.Flags.Method,
			Segments:      chain.Segments,
			Unresolved:    chain.Unresolved,
		})
	}

	return jsonResult(map[string]interface{}{
		"chains": reports,
		"count":  len(reports),
	})
}

func (s *Server) handleIndexStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.ensureAnalyzer()
	if err != nil {
		return errorResult("index_stats", err), nil
	}
	return jsonResult(a.Stats())
}

func (s *Server) handleReindex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.ensureAnalyzer()
	if err != nil {
		return errorResult("reindex", err), nil
	}
	if err := a.Rebuild(); err != nil {
		return errorResult("reindex", err), nil
	}
	return jsonResult(map[string]interface{}{
		"success": true,
		"stats":   a.Stats(),
	})
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
	}, nil
}

func errorResult(tool string, err error) *mcp.CallToolResult {
	debug.Log("mcp", "%s failed: %v", tool, err)
	payload, _ := json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{
			"tool":    tool,
			"message": err.Error(),
		},
	})
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}
}
