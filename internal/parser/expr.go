package parser

import (
	"strings"

	"github.com/pathlight/urlchain/internal/types"
)

// ExprKind is the closed set of expression shapes the resolution engine
// understands. Anything else lowers to ExprUnknown with its raw source
// text preserved, so unrecognized syntax degrades instead of erroring.
type ExprKind int

const (
	ExprUnknown ExprKind = iota
	ExprIdentifier
	ExprMemberAccess
	ExprCall
	ExprStringLiteral
)

// StringPart is one piece of a string literal: either literal text or an
// interpolated sub-expression.
type StringPart struct {
	Literal string
	Expr    *Expr // non-nil for an interpolation
}

// Argument is a call argument with its optional label
type Argument struct {
	Label string
	Value *Expr
}

// Expr is the lowered form of a Swift expression node.
//
// Field use by kind:
//   - ExprIdentifier: Name
//   - ExprMemberAccess: Base (object), Name (member)
//   - ExprCall: Base (callee expression), Args
//   - ExprStringLiteral: Parts
//   - ExprUnknown: Raw only
type Expr struct {
	Kind   ExprKind
	Name   string
	Base   *Expr
	Args   []Argument
	Parts  []StringPart
	Raw    string
	Line   int
	Column int
}

// IsIdentifier reports whether the expression is a bare identifier
func (e *Expr) IsIdentifier() bool {
	return e != nil && e.Kind == ExprIdentifier
}

// IsSelfAccess reports whether the expression is a member access through
// the implicit receiver (self.x), which local resolution treats like a
// bare identifier.
func (e *Expr) IsSelfAccess() bool {
	return e != nil && e.Kind == ExprMemberAccess && e.Base.IsIdentifier() && e.Base.Name == "self"
}

// LocalName returns the name local resolution should look up for this
// expression: the identifier itself, or the member name behind self.
// ok is false when the expression is not locally addressable.
func (e *Expr) LocalName() (string, bool) {
	if e.IsIdentifier() {
		return e.Name, true
	}
	if e.IsSelfAccess() {
		return e.Name, true
	}
	return "", false
}

// LiteralValue returns the string value when the literal has no
// interpolations; ok is false otherwise.
func (e *Expr) LiteralValue() (string, bool) {
	if e == nil || e.Kind != ExprStringLiteral {
		return "", false
	}
	var sb strings.Builder
	for _, part := range e.Parts {
		if part.Expr != nil {
			return "", false
		}
		sb.WriteString(part.Literal)
	}
	return sb.String(), true
}

// Render returns a compact source-like rendering used for placeholders
// and diagnostics.
func (e *Expr) Render() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ExprIdentifier:
		return e.Name
	case ExprMemberAccess:
		base := e.Base.Render()
		if base == "" {
			return e.Name
		}
		return base + "." + e.Name
	case ExprCall:
		return e.Base.Render() + "(...)"
	case ExprStringLiteral:
		if v, ok := e.LiteralValue(); ok {
			return "\"" + v + "\""
		}
		return strings.TrimSpace(e.Raw)
	default:
		return strings.TrimSpace(e.Raw)
	}
}

// Placeholder renders the expression as a dynamic segment token
func (e *Expr) Placeholder() string {
	return types.DynamicPlaceholder(e.Render())
}
