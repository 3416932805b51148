package parser

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/pathlight/urlchain/internal/types"
)

// lowerFile converts a parsed tree into FileSyntax. Lowering never fails:
// syntax the engine does not model becomes ExprUnknown with raw text.
func lowerFile(path string, content []byte, root *sitter.Node) *FileSyntax {
	file := &FileSyntax{
		Path: path,
		Hash: xxhash.Sum64(content),
	}

	walkDeclarations(root, content, file, "")
	file.index()
	return file
}

// walkDeclarations recursively collects type and property declarations,
// tracking the enclosing type name for member attribution.
func walkDeclarations(node *sitter.Node, content []byte, file *FileSyntax, owner string) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "class_declaration":
		// The grammar folds class, struct, enum, actor and extension
		// declarations into one node kind; the leading keyword tells
		// them apart.
		td := lowerTypeDecl(node, content)
		if td.Name != "" {
			file.Types = append(file.Types, td)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walkDeclarations(node.Child(i), content, file, td.Name)
		}
		return

	case "protocol_declaration":
		td := lowerTypeDecl(node, content)
		td.Kind = types.SymbolKindProtocol
		if td.Name != "" {
			file.Types = append(file.Types, td)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walkDeclarations(node.Child(i), content, file, td.Name)
		}
		return

	case "property_declaration":
		if pd, ok := lowerProperty(node, content, file.Path, owner); ok {
			file.Decls = append(file.Decls, pd)
		}
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkDeclarations(node.Child(i), content, file, owner)
	}
}

// lowerTypeDecl extracts name, keyword kind and inheritance clause
func lowerTypeDecl(node *sitter.Node, content []byte) TypeDecl {
	td := TypeDecl{
		Kind:      types.SymbolKindClass,
		StartLine: nodeLine(node),
		EndLine:   int(node.EndPosition().Row) + 1,
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		td.Name = GetNodeText(nameNode, content)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "struct":
			td.Kind = types.SymbolKindStruct
		case "enum":
			td.Kind = types.SymbolKindEnum
		case "extension":
			td.Kind = types.SymbolKindExtension
		case "inheritance_specifier":
			if name := strings.TrimSpace(GetNodeText(child, content)); name != "" {
				td.Inherits = append(td.Inherits, name)
			}
		}
	}

	// Extensions name a user type rather than carrying a name field
	if td.Name == "" && td.Kind == types.SymbolKindExtension {
		if ut := FindChildByType(node, "user_type"); ut != nil {
			td.Name = GetNodeText(ut, content)
		}
	}

	return td
}

// lowerProperty extracts one stored property or variable declaration.
// Declarations without a resolvable name are dropped.
func lowerProperty(node *sitter.Node, content []byte, path, owner string) (PropertyDecl, bool) {
	pd := PropertyDecl{
		Decl: types.Declaration{
			File:      path,
			Line:      nodeLine(node),
			Column:    nodeColumn(node),
			Kind:      propertyKind(node, content, owner),
			OwnerType: owner,
		},
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = FindChildByType(node, "pattern")
	}
	pd.Decl.Name = patternIdentifier(nameNode, content)
	if pd.Decl.Name == "" {
		return pd, false
	}

	if annotation := FindChildByType(node, "type_annotation"); annotation != nil {
		pd.TypeAnnotation = annotationType(annotation, content)
	}

	// The initializer is the expression following the "=" sign; computed
	// properties have a body instead and lower with a nil initializer.
	seenEquals := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() && GetNodeText(child, content) == "=" {
			seenEquals = true
			continue
		}
		if seenEquals && child.IsNamed() {
			pd.Initializer = lowerExpr(child, content)
			break
		}
	}

	return pd, true
}

// propertyKind distinguishes globals/locals from instance, static and
// class members.
func propertyKind(node *sitter.Node, content []byte, owner string) types.SymbolKind {
	if owner == "" {
		return types.SymbolKindVariable
	}

	if modifiers := FindChildByType(node, "modifiers"); modifiers != nil {
		for i := uint(0); i < modifiers.ChildCount(); i++ {
			child := modifiers.Child(i)
			switch strings.TrimSpace(GetNodeText(child, content)) {
			case "static":
				return types.SymbolKindStaticProperty
			case "class":
				return types.SymbolKindClassProperty
			}
		}
	}

	return types.SymbolKindProperty
}

// patternIdentifier digs the bound identifier out of a binding pattern
func patternIdentifier(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	if node.Kind() == "simple_identifier" {
		return GetNodeText(node, content)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if name := patternIdentifier(node.Child(i), content); name != "" {
			return name
		}
	}
	return ""
}

// annotationType returns the declared type name from a ": Type" clause
func annotationType(node *sitter.Node, content []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.IsNamed() {
			return strings.TrimSpace(GetNodeText(child, content))
		}
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(GetNodeText(node, content)), ":"))
}

// lowerExpr converts an expression node into the IR. The default arm
// preserves raw text so the resolver can emit a dynamic placeholder.
func lowerExpr(node *sitter.Node, content []byte) *Expr {
	if node == nil {
		return nil
	}

	expr := &Expr{
		Kind:   ExprUnknown,
		Raw:    GetNodeText(node, content),
		Line:   nodeLine(node),
		Column: nodeColumn(node),
	}

	switch node.Kind() {
	case "simple_identifier":
		expr.Kind = ExprIdentifier
		expr.Name = expr.Raw

	case "self_expression":
		expr.Kind = ExprIdentifier
		expr.Name = "self"

	case "navigation_expression":
		target := node.ChildByFieldName("target")
		suffix := node.ChildByFieldName("suffix")
		member := ""
		if suffix != nil {
			if id := FindChildByType(suffix, "simple_identifier"); id != nil {
				member = GetNodeText(id, content)
			} else {
				member = strings.TrimPrefix(strings.TrimSpace(GetNodeText(suffix, content)), ".")
			}
		}
		if target == nil || member == "" {
			// Implicit member (.post) or unexpected shape
			return expr
		}
		expr.Kind = ExprMemberAccess
		expr.Name = member
		expr.Base = lowerExpr(target, content)

	case "call_expression", "constructor_expression":
		var callee *sitter.Node
		var suffix *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || !child.IsNamed() {
				continue
			}
			if child.Kind() == "call_suffix" || child.Kind() == "value_arguments" {
				suffix = child
				continue
			}
			if callee == nil {
				callee = child
			}
		}
		if callee == nil {
			return expr
		}
		expr.Kind = ExprCall
		expr.Base = lowerCallee(callee, content)
		expr.Args = lowerArguments(suffix, content)

	case "line_string_literal", "multi_line_string_literal":
		expr.Kind = ExprStringLiteral
		expr.Parts = lowerStringParts(node, content)
	}

	return expr
}

// lowerCallee normalizes constructor callees (user types) to identifiers
func lowerCallee(node *sitter.Node, content []byte) *Expr {
	switch node.Kind() {
	case "user_type", "type_identifier":
		return &Expr{
			Kind:   ExprIdentifier,
			Name:   strings.TrimSpace(GetNodeText(node, content)),
			Raw:    GetNodeText(node, content),
			Line:   nodeLine(node),
			Column: nodeColumn(node),
		}
	}
	return lowerExpr(node, content)
}

// lowerArguments flattens a call suffix into labeled arguments
func lowerArguments(suffix *sitter.Node, content []byte) []Argument {
	if suffix == nil {
		return nil
	}

	args := suffix
	if suffix.Kind() == "call_suffix" {
		args = FindChildByType(suffix, "value_arguments")
		if args == nil {
			return nil
		}
	}

	var result []Argument
	for _, va := range FindChildrenByType(args, "value_argument") {
		arg := Argument{}
		if label := FindChildByType(va, "value_argument_label"); label != nil {
			arg.Label = strings.TrimSpace(GetNodeText(label, content))
		}
		for i := va.ChildCount(); i > 0; i-- {
			child := va.Child(i - 1)
			if child != nil && child.IsNamed() && child.Kind() != "value_argument_label" {
				arg.Value = lowerExpr(child, content)
				break
			}
		}
		if arg.Value != nil {
			result = append(result, arg)
		}
	}

	return result
}

// lowerStringParts splits a string literal into literal text and
// interpolated sub-expressions, in source order.
func lowerStringParts(node *sitter.Node, content []byte) []StringPart {
	var parts []StringPart

	appendLiteral := func(text string) {
		if text == "" {
			return
		}
		if n := len(parts); n > 0 && parts[n-1].Expr == nil {
			parts[n-1].Literal += text
			return
		}
		parts = append(parts, StringPart{Literal: text})
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "line_str_text", "multi_line_str_text", "raw_str_part":
			appendLiteral(GetNodeText(child, content))
		case "str_escaped_char":
			appendLiteral(unescape(GetNodeText(child, content)))
		case "interpolated_expression":
			var inner *sitter.Node
			for j := uint(0); j < child.ChildCount(); j++ {
				if c := child.Child(j); c != nil && c.IsNamed() {
					inner = c
					break
				}
			}
			expr := lowerExpr(inner, content)
			if expr == nil {
				raw := strings.TrimSuffix(strings.TrimPrefix(GetNodeText(child, content), `\(`), ")")
				expr = &Expr{Kind: ExprUnknown, Raw: raw, Line: nodeLine(child), Column: nodeColumn(child)}
			}
			parts = append(parts, StringPart{Expr: expr})
		}
	}

	return parts
}

// unescape maps the escape sequences that matter for path text
func unescape(s string) string {
	switch s {
	case `\\`:
		return `\`
	case `\"`:
		return `"`
	case `\n`:
		return "\n"
	case `\t`:
		return "\t"
	case `\/`:
		return "/"
	}
	return s
}
