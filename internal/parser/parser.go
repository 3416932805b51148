package parser

import (
	"errors"
	"os"
	"path/filepath"

	tree_sitter_swift "github.com/alex-pinkus/tree-sitter-swift/bindings/go"
	sitter "github.com/tree-sitter/go-tree-sitter"

	pkgerrors "github.com/pathlight/urlchain/internal/errors"
	"github.com/pathlight/urlchain/internal/types"
)

// TypeDecl is a type declaration found in a file (class, struct, enum,
// protocol, or extension) with its inheritance clause.
type TypeDecl struct {
	Name      string
	Kind      types.SymbolKind
	Inherits  []string
	StartLine int
	EndLine   int
}

// PropertyDecl is a stored property or variable declaration with its
// optional type annotation and initializer expression.
type PropertyDecl struct {
	Decl           types.Declaration
	TypeAnnotation string
	Initializer    *Expr
}

// FileSyntax is the lowered form of one parsed source file: every type
// declaration and every property/variable declaration with initializers
// already lowered to the expression IR.
type FileSyntax struct {
	Path  string
	Hash  uint64
	Types []TypeDecl
	Decls []PropertyDecl

	declsByName map[string][]*PropertyDecl
}

// NewFileSyntax assembles a lowered file from already-lowered parts.
// Useful for resolving against hand-built syntax.
func NewFileSyntax(path string, typeDecls []TypeDecl, decls []PropertyDecl) *FileSyntax {
	f := &FileSyntax{Path: path, Types: typeDecls, Decls: decls}
	f.index()
	return f
}

// DeclsNamed returns all declarations in the file with the given name
func (f *FileSyntax) DeclsNamed(name string) []*PropertyDecl {
	return f.declsByName[name]
}

// FirstDeclNamed returns the first declaration with the given name, or nil
func (f *FileSyntax) FirstDeclNamed(name string) *PropertyDecl {
	if decls := f.declsByName[name]; len(decls) > 0 {
		return decls[0]
	}
	return nil
}

// TypeNamed returns the type declaration with the given name, or nil
func (f *FileSyntax) TypeNamed(name string) *TypeDecl {
	for i := range f.Types {
		if f.Types[i].Name == name {
			return &f.Types[i]
		}
	}
	return nil
}

// index rebuilds the by-name lookup after lowering
func (f *FileSyntax) index() {
	f.declsByName = make(map[string][]*PropertyDecl, len(f.Decls))
	for i := range f.Decls {
		d := &f.Decls[i]
		f.declsByName[d.Decl.Name] = append(f.declsByName[d.Decl.Name], d)
	}
}

// Parser parses Swift source into FileSyntax. A Parser is not safe for
// concurrent use; the Loader owns serialization.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a parser configured for Swift
func NewParser() (*Parser, error) {
	parser := sitter.NewParser()
	if err := parser.SetLanguage(sitter.NewLanguage(tree_sitter_swift.Language())); err != nil {
		parser.Close()
		return nil, pkgerrors.NewParseError("", 0, 0, err)
	}
	return &Parser{parser: parser}, nil
}

// Close releases the underlying tree-sitter parser
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// ParseFile reads and parses a file from disk
func (p *Parser) ParseFile(path string) (*FileSyntax, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, pkgerrors.NewFileError("read", absPath, err)
	}

	return p.ParseBytes(absPath, content)
}

// ParseBytes parses in-memory source attributed to the given path
func (p *Parser) ParseBytes(path string, content []byte) (*FileSyntax, error) {
	tree := p.parser.Parse(content, nil)
	if tree == nil {
		return nil, pkgerrors.NewParseError(path, 0, 0, errors.New("tree-sitter returned no tree"))
	}
	defer tree.Close()

	return lowerFile(path, content, tree.RootNode()), nil
}

// GetNodeText extracts the source text covered by an AST node
func GetNodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}

	start := node.StartByte()
	end := node.EndByte()

	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}

	return string(content[start:end])
}

// FindChildByType finds the first child node of the given type
func FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}

	return nil
}

// FindChildrenByType finds all child nodes of the given type
func FindChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	if node == nil {
		return nil
	}

	var children []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			children = append(children, child)
		}
	}

	return children
}

// nodeLine returns the 1-based line of a node (tree-sitter is 0-based)
func nodeLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

// nodeColumn returns the 1-based column of a node
func nodeColumn(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Column) + 1
}
