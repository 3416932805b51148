package resolver

import (
	"strings"

	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

// ExtractionResult is one recognized construction idiom: an optional base
// sub-expression to resolve recursively, the literal segments this node
// contributes (in source order), and idiom metadata.
type ExtractionResult struct {
	Base             *parser.Expr
	Segments         []types.Segment
	IsRequestWrapper bool
	Method           string
}

// PatternExtractor recognizes one construction idiom. Extract returns nil
// when the node does not match; the resolver then falls through to its
// identifier/member handling and ultimately to "no resolution".
type PatternExtractor interface {
	Name() string
	Extract(expr *parser.Expr, originFile string) *ExtractionResult
}

// ExtractorConfig controls which call and constructor names the
// extractors recognize. Zero values fall back to the URL idioms.
type ExtractorConfig struct {
	AppendMethods []string
	LocatorTypes  []string
	WrapperTypes  []string
}

// DefaultExtractorConfig recognizes the Foundation URL construction surface
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		AppendMethods: []string{"appendingPathComponent", "appending"},
		LocatorTypes:  []string{"URL", "NSURL"},
		WrapperTypes:  []string{"URLRequest", "NSMutableURLRequest", "NSURLRequest"},
	}
}

// DefaultExtractors builds the extractor set in match order: append calls
// bind tighter than wrappers, wrappers tighter than literal constructors.
func DefaultExtractors(cfg ExtractorConfig) []PatternExtractor {
	if len(cfg.AppendMethods) == 0 {
		cfg = DefaultExtractorConfig()
	}
	return []PatternExtractor{
		&appendCallExtractor{methods: toSet(cfg.AppendMethods)},
		&wrapperConstructorExtractor{wrappers: toSet(cfg.WrapperTypes)},
		&literalConstructorExtractor{locators: toSet(cfg.LocatorTypes)},
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// appendCallExtractor matches base.appendingPathComponent("x") and
// friends. Chains of arbitrary depth resolve through the recursive base,
// so segments come out base-first.
type appendCallExtractor struct {
	methods map[string]bool
}

func (e *appendCallExtractor) Name() string { return "append-call" }

func (e *appendCallExtractor) Extract(expr *parser.Expr, originFile string) *ExtractionResult {
	if expr == nil || expr.Kind != parser.ExprCall {
		return nil
	}
	callee := expr.Base
	if callee == nil || callee.Kind != parser.ExprMemberAccess || !e.methods[callee.Name] {
		return nil
	}
	if len(expr.Args) == 0 {
		return nil
	}

	// Only path-extending overloads qualify; appending(queryItems:)
	// and similar do not add a path segment.
	switch expr.Args[0].Label {
	case "", "path", "component":
	default:
		return nil
	}

	arg := expr.Args[0].Value
	seg := types.Segment{
		SourceFile: originFile,
		SourceLine: expr.Line,
	}
	if value, ok := arg.LiteralValue(); ok {
		seg.Value = value
	} else {
		seg.Value = arg.Placeholder()
		seg.IsDynamic = true
	}

	return &ExtractionResult{
		Base:     callee.Base,
		Segments: []types.Segment{seg},
	}
}

// wrapperConstructorExtractor matches URLRequest(url: inner) style
// constructors: it contributes no segments of its own, recurses into the
// wrapped locator argument, and flags the chain as a request wrapper.
// A method:-labeled argument populates the HTTP method flag.
type wrapperConstructorExtractor struct {
	wrappers map[string]bool
}

func (e *wrapperConstructorExtractor) Name() string { return "wrapper-constructor" }

func (e *wrapperConstructorExtractor) Extract(expr *parser.Expr, originFile string) *ExtractionResult {
	if expr == nil || expr.Kind != parser.ExprCall {
		return nil
	}
	callee := expr.Base
	if callee == nil || callee.Kind != parser.ExprIdentifier || !e.wrappers[callee.Name] {
		return nil
	}

	result := &ExtractionResult{IsRequestWrapper: true}
	for i := range expr.Args {
		arg := &expr.Args[i]
		switch arg.Label {
		case "url", "":
			if result.Base == nil {
				result.Base = arg.Value
			}
		case "method", "httpMethod":
			result.Method = methodName(arg.Value)
		}
	}
	if result.Base == nil {
		return nil
	}
	return result
}

// methodName normalizes an HTTP method argument (.post, HTTPMethod.post,
// or a string literal) into its upper-case name.
func methodName(expr *parser.Expr) string {
	if expr == nil {
		return ""
	}
	if v, ok := expr.LiteralValue(); ok {
		return strings.ToUpper(v)
	}
	if expr.Kind == parser.ExprMemberAccess {
		return strings.ToUpper(expr.Name)
	}
	// Implicit member (.post) lowers to an unknown node
	raw := strings.TrimSpace(expr.Raw)
	if strings.HasPrefix(raw, ".") {
		return strings.ToUpper(strings.TrimPrefix(raw, "."))
	}
	return ""
}

// literalConstructorExtractor matches URL(string: "...") constructors and
// bare string-literal initializers. Pure absolute-URI literals split into
// a scheme://host root segment plus one path segment; interpolated
// literals keep their literal text and render interpolations as {expr}
// dynamic placeholders, with a leading interpolation becoming the base
// reference to resolve.
type literalConstructorExtractor struct {
	locators map[string]bool
}

func (e *literalConstructorExtractor) Name() string { return "literal-constructor" }

func (e *literalConstructorExtractor) Extract(expr *parser.Expr, originFile string) *ExtractionResult {
	if expr == nil {
		return nil
	}

	switch expr.Kind {
	case parser.ExprStringLiteral:
		return e.extractLiteral(expr, originFile)

	case parser.ExprCall:
		callee := expr.Base
		if callee == nil || callee.Kind != parser.ExprIdentifier || !e.locators[callee.Name] {
			return nil
		}
		arg := locatorArgument(expr.Args)
		if arg == nil {
			return nil
		}
		if arg.Kind == parser.ExprStringLiteral {
			return e.extractLiteral(arg, originFile)
		}
		// URL(string: someExpression) - recurse into the argument
		return &ExtractionResult{Base: arg}
	}

	return nil
}

// locatorArgument picks the string payload of a locator constructor
func locatorArgument(args []parser.Argument) *parser.Expr {
	for i := range args {
		if args[i].Label == "string" || args[i].Label == "fileURLWithPath" {
			return args[i].Value
		}
	}
	if len(args) == 1 && args[0].Label == "" {
		return args[0].Value
	}
	return nil
}

// extractLiteral lowers a string literal's parts into base + segments
func (e *literalConstructorExtractor) extractLiteral(lit *parser.Expr, originFile string) *ExtractionResult {
	parts := lit.Parts
	result := &ExtractionResult{}

	// A leading interpolation is the chain's base reference
	if len(parts) > 0 && parts[0].Expr != nil {
		result.Base = parts[0].Expr
		parts = parts[1:]
	}

	var sb strings.Builder
	dynamic := false
	for _, part := range parts {
		if part.Expr != nil {
			sb.WriteString(part.Expr.Placeholder())
			dynamic = true
			continue
		}
		sb.WriteString(part.Literal)
	}

	text := sb.String()
	if text == "" {
		return result
	}

	appendSegment := func(value string, isDynamic bool) {
		value = strings.Trim(value, "/")
		if value == "" {
			return
		}
		result.Segments = append(result.Segments, types.Segment{
			Value:      value,
			SourceFile: originFile,
			SourceLine: lit.Line,
			IsDynamic:  isDynamic,
		})
	}

	// Absolute URIs split into root (scheme://host[:port]) and path
	if result.Base == nil {
		if root, rest, ok := splitAbsoluteURI(text); ok {
			result.Segments = append(result.Segments, types.Segment{
				Value:      root,
				SourceFile: originFile,
				SourceLine: lit.Line,
				IsDynamic:  strings.Contains(root, "{"),
			})
			appendSegment(rest, dynamic || strings.Contains(rest, "{"))
			return result
		}
	}

	appendSegment(text, dynamic)
	return result
}

// splitAbsoluteURI splits "scheme://host[:port]/path" into the authority
// root and the remainder. ok is false when the text is not an absolute URI.
func splitAbsoluteURI(text string) (root, rest string, ok bool) {
	idx := strings.Index(text, "://")
	if idx <= 0 {
		return "", "", false
	}
	scheme := text[:idx]
	for _, r := range scheme {
		if !isSchemeRune(r) {
			return "", "", false
		}
	}

	after := text[idx+3:]
	slash := strings.IndexByte(after, '/')
	if slash < 0 {
		return text, "", true
	}
	return text[:idx+3+slash], after[slash:], true
}

func isSchemeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '.':
		return true
	}
	return false
}
