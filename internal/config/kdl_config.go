package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .urlchain.kdl file.
// (nil, nil) means no file was found and the caller should fall back.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, KDLConfigName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KDLConfigName, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	resolveRoot(cfg, projectRoot)
	return cfg, nil
}

// resolveRoot makes the configured root absolute, relative to the
// directory holding the config file.
func resolveRoot(cfg *Config, projectRoot string) {
	if cfg == nil {
		return
	}
	if cfg.Project.Root != "" && !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
		return
	}
	if cfg.Project.Root == "" {
		if absRoot, err := filepath.Abs(projectRoot); err == nil {
			cfg.Project.Root = absRoot
		} else {
			cfg.Project.Root = projectRoot
		}
	}
}

// parseKDL maps the KDL document onto a Config seeded with defaults.
// The root seed is cleared: a file that names no root means "the
// directory the file lives in", which resolveRoot fills in, not the
// process working directory that Default assumes.
func parseKDL(content string) (*Config, error) {
	if err := checkKDLSyntax(content); err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	cfg := Default()
	cfg.Project.Root = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					cfg.Scan.Include = collectStringArgs(cn)
				case "exclude":
					cfg.Scan.Exclude = collectStringArgs(cn)
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.MaxFileSize = int64(v)
					}
				case "cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.CacheSize = v
					}
				}
			}
		case "resolve":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Resolve.MaxDepth = v
					}
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Resolve.Workers = v
					}
				case "patterns":
					cfg.Resolve.NamePatterns = collectStringArgs(cn)
				case "append_methods":
					cfg.Resolve.AppendMethods = collectStringArgs(cn)
				case "locator_types":
					cfg.Resolve.LocatorTypes = collectStringArgs(cn)
				case "wrapper_types":
					cfg.Resolve.WrapperTypes = collectStringArgs(cn)
				}
			}
		case "output":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "format":
					if s, ok := firstStringArg(cn); ok {
						cfg.Output.Format = s
					}
				case "show_partial":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Output.ShowPartial = b
					}
				}
			}
		}
	}

	return cfg, nil
}

// checkKDLSyntax rejects structurally broken documents before parsing.
// The parser recovers from truncated input by dropping whatever it could
// not finish, which would make a broken config silently behave like an
// empty one; unbalanced braces and unterminated strings fail fast here
// instead.
func checkKDLSyntax(content string) error {
	depth := 0
	commentDepth := 0
	inString := false
	inLineComment := false

	for i := 0; i < len(content); i++ {
		c := content[i]

		if inLineComment {
			if c == '\n' {
				inLineComment = false
			}
			continue
		}
		if commentDepth > 0 {
			if c == '/' && i+1 < len(content) && content[i+1] == '*' {
				commentDepth++
				i++
			} else if c == '*' && i+1 < len(content) && content[i+1] == '/' {
				commentDepth--
				i++
			}
			continue
		}
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '/':
			if i+1 < len(content) {
				switch content[i+1] {
				case '/':
					inLineComment = true
					i++
				case '*':
					commentDepth++
					i++
				}
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced '}'")
			}
		}
	}

	if inString {
		return fmt.Errorf("unterminated string")
	}
	if commentDepth > 0 {
		return fmt.Errorf("unterminated comment")
	}
	if depth != 0 {
		return fmt.Errorf("%d unclosed '{'", depth)
	}
	return nil
}

// Helper functions over the kdl-go document model

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block format: values are child nodes whose names are the strings
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
