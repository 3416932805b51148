package types

import (
	"fmt"
	"strings"
)

// SymbolKind represents the kind of a declaration in the analyzed codebase
type SymbolKind int

const (
	SymbolKindUnknown SymbolKind = iota
	SymbolKindVariable
	SymbolKindProperty
	SymbolKindStaticProperty
	SymbolKindClassProperty
	SymbolKindClass
	SymbolKindStruct
	SymbolKindEnum
	SymbolKindProtocol
	SymbolKindExtension
)

// symbolKindStrings provides O(1) lookup for symbol kind names
var symbolKindStrings = map[SymbolKind]string{
	SymbolKindUnknown:        "unknown",
	SymbolKindVariable:       "variable",
	SymbolKindProperty:       "property",
	SymbolKindStaticProperty: "static_property",
	SymbolKindClassProperty:  "class_property",
	SymbolKindClass:          "class",
	SymbolKindStruct:         "struct",
	SymbolKindEnum:           "enum",
	SymbolKindProtocol:       "protocol",
	SymbolKindExtension:      "extension",
}

// String returns the human-readable name of the kind
func (k SymbolKind) String() string {
	if s, ok := symbolKindStrings[k]; ok {
		return s
	}
	return "unknown"
}

// IsType reports whether the kind names a type declaration rather than a value
func (k SymbolKind) IsType() bool {
	switch k {
	case SymbolKindClass, SymbolKindStruct, SymbolKindEnum, SymbolKindProtocol, SymbolKindExtension:
		return true
	}
	return false
}

// Declaration identifies one named declaration in the codebase.
// Identity is (Name, File, Line); uniqueness is the symbol index's job.
type Declaration struct {
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Line   int        `json:"line"`
	Column int        `json:"column"`
	Kind   SymbolKind `json:"kind"`

	// OwnerType is the enclosing type name for members, "" for globals/locals
	OwnerType string `json:"ownerType,omitempty"`
}

// String returns a debug representation of the declaration
func (d Declaration) String() string {
	if d.OwnerType != "" {
		return fmt.Sprintf("%s.%s@%s:%d", d.OwnerType, d.Name, d.File, d.Line)
	}
	return fmt.Sprintf("%s@%s:%d", d.Name, d.File, d.Line)
}

// Segment is one literal or placeholder piece of an assembled value,
// with source provenance. Dynamic segments hold a placeholder token of
// the form {expr} and are never dropped from a chain.
type Segment struct {
	Value      string `json:"value"`
	SourceFile string `json:"sourceFile"`
	SourceLine int    `json:"sourceLine"`
	IsDynamic  bool   `json:"isDynamic,omitempty"`
}

// DynamicPlaceholder renders an unresolvable sub-expression as a segment token
func DynamicPlaceholder(expr string) string {
	return "{" + strings.TrimSpace(expr) + "}"
}

// ResolutionStatus marks how much of a chain got resolved
type ResolutionStatus int

const (
	// ResolutionComplete means the chain bottomed out at a literal root
	ResolutionComplete ResolutionStatus = iota
	// ResolutionOpen means the chain has an unresolved base reference
	ResolutionOpen
	// ResolutionCyclic means resolution hit a self-referential initializer
	ResolutionCyclic
	// ResolutionDepthExceeded means cross-scope recursion hit the depth cap
	ResolutionDepthExceeded
)

var resolutionStatusStrings = map[ResolutionStatus]string{
	ResolutionComplete:      "complete",
	ResolutionOpen:          "open",
	ResolutionCyclic:        "cyclic",
	ResolutionDepthExceeded: "depth_exceeded",
}

// String returns the human-readable status name
func (s ResolutionStatus) String() string {
	if v, ok := resolutionStatusStrings[s]; ok {
		return v
	}
	return "unknown"
}

// ChainFlags carries idiom metadata recognized during extraction
type ChainFlags struct {
	// IsRequestWrapper is set when the value was wrapped by a request
	// constructor (URLRequest and friends) rather than used directly
	IsRequestWrapper bool `json:"isRequestWrapper,omitempty"`

	// Method is the HTTP method when a wrapper carried one ("" otherwise)
	Method string `json:"method,omitempty"`
}

// ConstructionChain is the ordered resolution result for one declaration,
// from root reference to final segments. Segments are base-first, append-order.
type ConstructionChain struct {
	Declaration Declaration      `json:"declaration"`
	Segments    []Segment        `json:"segments"`
	Flags       ChainFlags       `json:"flags"`
	Status      ResolutionStatus `json:"status"`

	// BaseReference is the unresolved root identifier or expression when
	// resolution bottomed out on an opaque value; empty once the chain is
	// fully resolved to a literal root.
	BaseReference string `json:"baseReference,omitempty"`

	// Unresolved lists the object.member accesses that stayed open after
	// local and cross-scope resolution, so reports can show the gaps.
	Unresolved []UnresolvedReference `json:"unresolved,omitempty"`
}

// IsPartial reports whether anything in the chain is still open
func (c *ConstructionChain) IsPartial() bool {
	return c.Status != ResolutionComplete
}

// FullValue joins the chain into the final assembled value. An unresolved
// base renders as a {name} placeholder so partial chains stay traceable;
// dynamic segments appear verbatim.
func (c *ConstructionChain) FullValue() string {
	parts := make([]string, 0, len(c.Segments)+1)
	if c.BaseReference != "" {
		parts = append(parts, DynamicPlaceholder(c.BaseReference))
	}
	for _, seg := range c.Segments {
		v := strings.Trim(seg.Value, "/")
		if v == "" {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "/")
}

// UnresolvedReference records an object.member access the local resolver
// could not satisfy from the current file; the cross-scope resolver
// consumes these.
type UnresolvedReference struct {
	ObjectExpression string `json:"objectExpression"`
	MemberName       string `json:"memberName"`
	OriginFile       string `json:"originFile"`
	OriginLine       int    `json:"originLine"`
}

// String returns a debug representation of the reference
func (r UnresolvedReference) String() string {
	return fmt.Sprintf("%s.%s (from %s:%d)", r.ObjectExpression, r.MemberName, r.OriginFile, r.OriginLine)
}

// ResolvedEndpoint is the aggregator's output unit: one record per
// distinct assembled value with every contributing declaration attached.
type ResolvedEndpoint struct {
	FullValue     string        `json:"fullValue"`
	Segments      []Segment     `json:"segments"`
	BaseReference string        `json:"baseReference,omitempty"`
	Method        string        `json:"method,omitempty"`
	IsPartial     bool          `json:"isPartial,omitempty"`
	References    []Declaration `json:"references"`
}
