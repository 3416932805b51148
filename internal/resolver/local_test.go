package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

func resolveIn(t *testing.T, file *parser.FileSyntax, name string) *types.ConstructionChain {
	t.Helper()
	target := file.FirstDeclNamed(name)
	require.NotNil(t, target, "declaration %q not found", name)

	r := NewFileResolver(file, defaultExtractorSet(), nil)
	chain := r.Resolve(target)
	require.NotNil(t, chain)
	return chain
}

func TestResolve_LiteralConstructor(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("profileURL", "", types.SymbolKindVariable,
			call(ident("URL"), arg("string", strLit("https://api.example.com/users/profile")))),
	})

	chain := resolveIn(t, file, "profileURL")
	assert.Equal(t, types.ResolutionComplete, chain.Status)
	assert.Equal(t, "https://api.example.com/users/profile", chain.FullValue())
	assert.Empty(t, chain.BaseReference)
	assert.Empty(t, chain.Unresolved)
}

func TestResolve_AppendChain(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("rootURL", "", types.SymbolKindVariable,
			call(ident("URL"), arg("string", strLit("https://api.example.com")))),
		prop("usersURL", "", types.SymbolKindVariable,
			call(member(ident("rootURL"), "appendingPathComponent"), arg("", strLit("x")))),
		prop("profileURL", "", types.SymbolKindVariable,
			call(member(ident("usersURL"), "appendingPathComponent"), arg("", strLit("y")))),
	})

	chain := resolveIn(t, file, "profileURL")
	assert.Equal(t, types.ResolutionComplete, chain.Status)

	values := make([]string, 0, len(chain.Segments))
	for _, seg := range chain.Segments {
		values = append(values, seg.Value)
	}
	assert.Equal(t, []string{"https://api.example.com", "x", "y"}, values)
	assert.Equal(t, "https://api.example.com/x/y", chain.FullValue())
}

func TestResolve_InterpolatedLiteral(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("endpoint", "", types.SymbolKindVariable,
			interpLit(interp(ident("base")), text("/users/"), interp(ident("id")))),
	})

	chain := resolveIn(t, file, "endpoint")
	assert.Equal(t, types.ResolutionOpen, chain.Status)
	assert.Equal(t, "base", chain.BaseReference)
	require.Len(t, chain.Segments, 1)
	assert.Equal(t, "users/{id}", chain.Segments[0].Value)
	assert.True(t, chain.Segments[0].IsDynamic)
	assert.Equal(t, "{base}/users/{id}", chain.FullValue())
}

func TestResolve_InterpolatedBaseResolvesLocally(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("base", "", types.SymbolKindVariable, strLit("https://api.example.com")),
		prop("endpoint", "", types.SymbolKindVariable,
			interpLit(interp(ident("base")), text("/login"))),
	})

	chain := resolveIn(t, file, "endpoint")
	assert.Equal(t, types.ResolutionComplete, chain.Status)
	assert.Equal(t, "https://api.example.com/login", chain.FullValue())
}

func TestResolve_SelfCycle(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("a", "", types.SymbolKindVariable, ident("b")),
		prop("b", "", types.SymbolKindVariable, ident("a")),
	})

	chain := resolveIn(t, file, "a")
	assert.Equal(t, types.ResolutionCyclic, chain.Status)
	assert.True(t, chain.IsPartial())
}

func TestResolve_DirectSelfReference(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("loop", "", types.SymbolKindVariable,
			call(member(ident("loop"), "appendingPathComponent"), arg("", strLit("x")))),
	})

	chain := resolveIn(t, file, "loop")
	assert.Equal(t, types.ResolutionCyclic, chain.Status)
	// The appended segment survives even though the base is cyclic
	require.Len(t, chain.Segments, 1)
	assert.Equal(t, "x", chain.Segments[0].Value)
}

func TestResolve_SelfMemberAccess(t *testing.T) {
	file := parser.NewFileSyntax("api.swift",
		[]parser.TypeDecl{{Name: "APIService", Kind: types.SymbolKindClass}},
		[]parser.PropertyDecl{
			prop("base", "APIService", types.SymbolKindProperty, strLit("https://api.example.com")),
			prop("loginURL", "APIService", types.SymbolKindProperty,
				call(member(member(ident("self"), "base"), "appendingPathComponent"), arg("", strLit("login")))),
		})

	chain := resolveIn(t, file, "loginURL")
	assert.Equal(t, types.ResolutionComplete, chain.Status)
	assert.Equal(t, "https://api.example.com/login", chain.FullValue())
}

func TestResolve_StaticMemberSameFile(t *testing.T) {
	file := parser.NewFileSyntax("api.swift",
		[]parser.TypeDecl{{Name: "Constants", Kind: types.SymbolKindEnum}},
		[]parser.PropertyDecl{
			prop("apiRoot", "Constants", types.SymbolKindStaticProperty, strLit("https://api.example.com/v1")),
			prop("healthURL", "", types.SymbolKindVariable,
				call(member(member(ident("Constants"), "apiRoot"), "appendingPathComponent"), arg("", strLit("health")))),
		})

	chain := resolveIn(t, file, "healthURL")
	assert.Equal(t, types.ResolutionComplete, chain.Status)
	assert.Equal(t, "https://api.example.com/v1/health", chain.FullValue())
}

func TestResolve_StaticMemberCycle(t *testing.T) {
	file := parser.NewFileSyntax("api.swift",
		[]parser.TypeDecl{{Name: "C", Kind: types.SymbolKindEnum}},
		[]parser.PropertyDecl{
			prop("x", "C", types.SymbolKindStaticProperty, member(ident("C"), "y")),
			prop("y", "C", types.SymbolKindStaticProperty, member(ident("C"), "x")),
		})

	chain := resolveIn(t, file, "x")
	assert.Equal(t, types.ResolutionCyclic, chain.Status)
}

func TestResolve_OpenBase(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("requestURL", "", types.SymbolKindVariable,
			call(member(ident("injectedBase"), "appendingPathComponent"), arg("", strLit("orders")))),
	})

	chain := resolveIn(t, file, "requestURL")
	assert.Equal(t, types.ResolutionOpen, chain.Status)
	assert.Equal(t, "injectedBase", chain.BaseReference)
	assert.Equal(t, "{injectedBase}/orders", chain.FullValue())
}

func TestResolve_UnresolvedMemberAccess(t *testing.T) {
	// No cross-scope resolver attached: object.member stays open and is
	// recorded for the report.
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("loginURL", "", types.SymbolKindVariable,
			call(member(member(ident("service"), "baseURL"), "appendingPathComponent"), arg("", strLit("login")))),
	})

	chain := resolveIn(t, file, "loginURL")
	assert.Equal(t, types.ResolutionOpen, chain.Status)
	require.Len(t, chain.Unresolved, 1)
	assert.Equal(t, "service", chain.Unresolved[0].ObjectExpression)
	assert.Equal(t, "baseURL", chain.Unresolved[0].MemberName)
	assert.Equal(t, "{service.baseURL}/login", chain.FullValue())
}

func TestResolve_RequestWrapper(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("loginRequest", "", types.SymbolKindVariable,
			call(ident("URLRequest"),
				arg("url", call(ident("URL"), arg("string", strLit("https://api.example.com/login")))),
				arg("method", strLit("post")))),
	})

	chain := resolveIn(t, file, "loginRequest")
	assert.Equal(t, types.ResolutionComplete, chain.Status)
	assert.True(t, chain.Flags.IsRequestWrapper)
	assert.Equal(t, "POST", chain.Flags.Method)
	assert.Equal(t, "https://api.example.com/login", chain.FullValue())
}

func TestResolve_NilInitializer(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("computed", "", types.SymbolKindVariable, nil),
	})

	chain := resolveIn(t, file, "computed")
	assert.Equal(t, types.ResolutionOpen, chain.Status)
	assert.Empty(t, chain.Segments)
}

func TestResolve_UnknownShape(t *testing.T) {
	file := parser.NewFileSyntax("api.swift", nil, []parser.PropertyDecl{
		prop("weird", "", types.SymbolKindVariable, unknown("someFunc ? a : b")),
	})

	chain := resolveIn(t, file, "weird")
	assert.Equal(t, types.ResolutionOpen, chain.Status)
	assert.Equal(t, "someFunc ? a : b", chain.BaseReference)
}
