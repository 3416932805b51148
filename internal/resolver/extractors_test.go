package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

// IR construction helpers shared by the resolver tests

func ident(name string) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprIdentifier, Name: name, Raw: name}
}

func member(base *parser.Expr, name string) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprMemberAccess, Base: base, Name: name}
}

func call(callee *parser.Expr, args ...parser.Argument) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprCall, Base: callee, Args: args}
}

func arg(label string, value *parser.Expr) parser.Argument {
	return parser.Argument{Label: label, Value: value}
}

func strLit(text string) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprStringLiteral, Parts: []parser.StringPart{{Literal: text}}}
}

func interpLit(parts ...parser.StringPart) *parser.Expr {
	return &parser.Expr{Kind: parser.ExprStringLiteral, Parts: parts}
}

func text(s string) parser.StringPart { return parser.StringPart{Literal: s} }

func interp(e *parser.Expr) parser.StringPart { return parser.StringPart{Expr: e} }

func unknown(raw string) *parser.Expr { return &parser.Expr{Kind: parser.ExprUnknown, Raw: raw} }

func prop(name, owner string, kind types.SymbolKind, init *parser.Expr) parser.PropertyDecl {
	return parser.PropertyDecl{
		Decl: types.Declaration{
			Name:      name,
			File:      "test.swift",
			Kind:      kind,
			OwnerType: owner,
		},
		Initializer: init,
	}
}

func defaultExtractorSet() []PatternExtractor {
	return DefaultExtractors(DefaultExtractorConfig())
}

func TestAppendCallExtractor_LiteralSegment(t *testing.T) {
	e := &appendCallExtractor{methods: toSet([]string{"appendingPathComponent"})}

	expr := call(member(ident("root"), "appendingPathComponent"), arg("", strLit("users")))
	result := e.Extract(expr, "api.swift")
	require.NotNil(t, result)

	require.Len(t, result.Segments, 1)
	assert.Equal(t, "users", result.Segments[0].Value)
	assert.False(t, result.Segments[0].IsDynamic)
	assert.Equal(t, "api.swift", result.Segments[0].SourceFile)
	require.NotNil(t, result.Base)
	assert.Equal(t, "root", result.Base.Name)
}

func TestAppendCallExtractor_DynamicSegment(t *testing.T) {
	e := &appendCallExtractor{methods: toSet([]string{"appendingPathComponent"})}

	expr := call(member(ident("root"), "appendingPathComponent"), arg("", ident("userID")))
	result := e.Extract(expr, "api.swift")
	require.NotNil(t, result)

	require.Len(t, result.Segments, 1)
	assert.Equal(t, "{userID}", result.Segments[0].Value)
	assert.True(t, result.Segments[0].IsDynamic)
}

func TestAppendCallExtractor_Declines(t *testing.T) {
	e := &appendCallExtractor{methods: toSet([]string{"appendingPathComponent"})}

	assert.Nil(t, e.Extract(nil, "x.swift"))
	assert.Nil(t, e.Extract(ident("root"), "x.swift"))
	assert.Nil(t, e.Extract(call(member(ident("root"), "absoluteString")), "x.swift"))
	// No arguments means nothing to append
	assert.Nil(t, e.Extract(call(member(ident("root"), "appendingPathComponent")), "x.swift"))
}

func TestAppendCallExtractor_ArgumentLabels(t *testing.T) {
	e := &appendCallExtractor{methods: toSet([]string{"appending"})}

	for _, label := range []string{"", "path", "component"} {
		expr := call(member(ident("root"), "appending"), arg(label, strLit("users")))
		result := e.Extract(expr, "api.swift")
		require.NotNil(t, result, "label %q", label)
		require.Len(t, result.Segments, 1)
		assert.Equal(t, "users", result.Segments[0].Value)
	}

	// Non-path overloads share the method name but never extend the path
	expr := call(member(ident("root"), "appending"), arg("queryItems", ident("items")))
	assert.Nil(t, e.Extract(expr, "api.swift"))
}

func TestWrapperConstructorExtractor(t *testing.T) {
	e := &wrapperConstructorExtractor{wrappers: toSet([]string{"URLRequest"})}

	inner := call(ident("URL"), arg("string", strLit("https://api.example.com/login")))
	result := e.Extract(call(ident("URLRequest"), arg("url", inner)), "req.swift")
	require.NotNil(t, result)

	assert.True(t, result.IsRequestWrapper)
	assert.Empty(t, result.Segments)
	assert.Same(t, inner, result.Base)
}

func TestWrapperConstructorExtractor_Method(t *testing.T) {
	e := &wrapperConstructorExtractor{wrappers: toSet([]string{"URLRequest"})}

	tests := []struct {
		name   string
		method *parser.Expr
		want   string
	}{
		{"string literal", strLit("post"), "POST"},
		{"member access", member(ident("HTTPMethod"), "put"), "PUT"},
		{"implicit member", unknown(".delete"), "DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := call(ident("URLRequest"),
				arg("url", ident("endpoint")),
				arg("method", tt.method))
			result := e.Extract(expr, "req.swift")
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Method)
		})
	}
}

func TestWrapperConstructorExtractor_NoURLArgument(t *testing.T) {
	e := &wrapperConstructorExtractor{wrappers: toSet([]string{"URLRequest"})}
	assert.Nil(t, e.Extract(call(ident("URLRequest"), arg("cachePolicy", ident("policy"))), "x.swift"))
}

func TestLiteralConstructorExtractor_AbsoluteURI(t *testing.T) {
	e := &literalConstructorExtractor{locators: toSet([]string{"URL"})}

	expr := call(ident("URL"), arg("string", strLit("https://api.example.com/users/profile")))
	result := e.Extract(expr, "api.swift")
	require.NotNil(t, result)

	assert.Nil(t, result.Base)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "https://api.example.com", result.Segments[0].Value)
	assert.Equal(t, "users/profile", result.Segments[1].Value)
	assert.False(t, result.Segments[1].IsDynamic)
}

func TestLiteralConstructorExtractor_HostOnly(t *testing.T) {
	e := &literalConstructorExtractor{locators: toSet([]string{"URL"})}

	result := e.Extract(strLit("https://api.example.com"), "api.swift")
	require.NotNil(t, result)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "https://api.example.com", result.Segments[0].Value)
}

func TestLiteralConstructorExtractor_LeadingInterpolation(t *testing.T) {
	e := &literalConstructorExtractor{locators: toSet([]string{"URL"})}

	lit := interpLit(interp(ident("base")), text("/users/"), interp(ident("id")))
	result := e.Extract(lit, "api.swift")
	require.NotNil(t, result)

	require.NotNil(t, result.Base)
	assert.Equal(t, "base", result.Base.Name)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "users/{id}", result.Segments[0].Value)
	assert.True(t, result.Segments[0].IsDynamic)
}

func TestLiteralConstructorExtractor_MidInterpolation(t *testing.T) {
	e := &literalConstructorExtractor{locators: toSet([]string{"URL"})}

	lit := interpLit(text("https://api.example.com/users/"), interp(ident("id")), text("/posts"))
	result := e.Extract(lit, "api.swift")
	require.NotNil(t, result)

	assert.Nil(t, result.Base)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "https://api.example.com", result.Segments[0].Value)
	assert.Equal(t, "users/{id}/posts", result.Segments[1].Value)
	assert.True(t, result.Segments[1].IsDynamic)
}

func TestLiteralConstructorExtractor_ExpressionArgument(t *testing.T) {
	e := &literalConstructorExtractor{locators: toSet([]string{"URL"})}

	inner := ident("endpointString")
	result := e.Extract(call(ident("URL"), arg("string", inner)), "api.swift")
	require.NotNil(t, result)
	assert.Same(t, inner, result.Base)
	assert.Empty(t, result.Segments)
}

func TestLiteralConstructorExtractor_Declines(t *testing.T) {
	e := &literalConstructorExtractor{locators: toSet([]string{"URL"})}

	assert.Nil(t, e.Extract(ident("x"), "x.swift"))
	assert.Nil(t, e.Extract(call(ident("Date")), "x.swift"))
	// Unlabeled multi-argument constructors are not locator calls
	assert.Nil(t, e.Extract(call(ident("URL"), arg("a", strLit("x")), arg("b", strLit("y"))), "x.swift"))
}

func TestSplitAbsoluteURI(t *testing.T) {
	tests := []struct {
		text string
		root string
		rest string
		ok   bool
	}{
		{"https://api.example.com/users", "https://api.example.com", "/users", true},
		{"http://host:8080/a/b", "http://host:8080", "/a/b", true},
		{"https://api.example.com", "https://api.example.com", "", true},
		{"/relative/path", "", "", false},
		{"users/profile", "", "", false},
		{"not a uri://x", "", "", false},
		{"://missing", "", "", false},
	}

	for _, tt := range tests {
		root, rest, ok := splitAbsoluteURI(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.root, root, tt.text)
		assert.Equal(t, tt.rest, rest, tt.text)
	}
}

func TestMethodName(t *testing.T) {
	assert.Equal(t, "", methodName(nil))
	assert.Equal(t, "GET", methodName(strLit("get")))
	assert.Equal(t, "POST", methodName(member(ident("HTTPMethod"), "post")))
	assert.Equal(t, "PATCH", methodName(unknown(" .patch ")))
	assert.Equal(t, "", methodName(ident("someVariable")))
}

func TestDefaultExtractorsOrder(t *testing.T) {
	extractors := defaultExtractorSet()
	require.Len(t, extractors, 3)
	assert.Equal(t, "append-call", extractors[0].Name())
	assert.Equal(t, "wrapper-constructor", extractors[1].Name())
	assert.Equal(t, "literal-constructor", extractors[2].Name())
}
