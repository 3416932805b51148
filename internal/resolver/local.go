package resolver

import (
	"github.com/pathlight/urlchain/internal/debug"
	"github.com/pathlight/urlchain/internal/parser"
	"github.com/pathlight/urlchain/internal/types"
)

// resolveContext threads the shared bounds of one resolution branch
// through local and cross-scope calls: the cross-file recursion depth and
// the (type, member) pairs already on this branch. It is never shared
// between declarations, which keeps resolution reproducible.
type resolveContext struct {
	depth        int
	crossVisited map[memberKey]bool
}

func newResolveContext() *resolveContext {
	return &resolveContext{crossVisited: make(map[memberKey]bool)}
}

// child returns a context one cross-file hop deeper, sharing the branch's
// visited set.
func (rc *resolveContext) child() *resolveContext {
	return &resolveContext{depth: rc.depth + 1, crossVisited: rc.crossVisited}
}

// chainState accumulates one resolution branch
type chainState struct {
	segments   []types.Segment
	baseRef    string
	status     types.ResolutionStatus
	flags      types.ChainFlags
	unresolved []types.UnresolvedReference
}

// FileResolver resolves declarations within one lowered file. The collect
// phase is the FileSyntax itself (every declaration with its raw
// initializer); Resolve walks one target's initializer through the
// pattern extractors, splicing same-file references in front of the
// segments they contribute to.
type FileResolver struct {
	file       *parser.FileSyntax
	extractors []PatternExtractor
	cross      *CrossScopeResolver
}

// NewFileResolver creates a resolver for one file. cross may be nil for
// purely local resolution (tests, or single-file analysis).
func NewFileResolver(file *parser.FileSyntax, extractors []PatternExtractor, cross *CrossScopeResolver) *FileResolver {
	return &FileResolver{file: file, extractors: extractors, cross: cross}
}

// Resolve resolves the target declaration into a construction chain.
// It never fails: everything short of a literal root surfaces as a
// partial chain with an explicit status.
func (r *FileResolver) Resolve(target *parser.PropertyDecl) *types.ConstructionChain {
	rc := newResolveContext()
	// The target itself must be on the branch's visited set, or a
	// reference cycle back to it is only caught one lap late and its
	// segments splice in twice.
	if target.Decl.OwnerType != "" {
		rc.crossVisited[memberKey{TypeName: target.Decl.OwnerType, MemberName: target.Decl.Name}] = true
	}
	return r.resolveDecl(target, rc)
}

func (r *FileResolver) resolveDecl(target *parser.PropertyDecl, rc *resolveContext) *types.ConstructionChain {
	// Both keys guard the target: members are reachable through their
	// bare name (self.x) and their qualified name (Type.x).
	visited := map[string]bool{
		target.Decl.Name: true,
		visitKey(target): true,
	}
	st := r.resolveExpr(target.Initializer, visited, rc)

	chain := &types.ConstructionChain{
		Declaration: target.Decl,
		Segments:    st.segments,
		Flags:       st.flags,
		Status:      st.status,
		Unresolved:  st.unresolved,
	}
	if st.status != types.ResolutionComplete {
		chain.BaseReference = st.baseRef
	}

	debug.LogResolve("%s -> %q (%s)\n", target.Decl.String(), chain.FullValue(), chain.Status)
	return chain
}

// resolveExpr is the recursive heart of local resolution. Extractors run
// first; identifier and member fallbacks handle everything they decline.
func (r *FileResolver) resolveExpr(expr *parser.Expr, visited map[string]bool, rc *resolveContext) chainState {
	if expr == nil {
		return chainState{status: types.ResolutionOpen}
	}

	for _, extractor := range r.extractors {
		result := extractor.Extract(expr, r.file.Path)
		if result == nil {
			continue
		}

		st := chainState{status: types.ResolutionComplete}
		if result.Base != nil {
			st = r.resolveExpr(result.Base, visited, rc)
		}
		// Base segments come first, this node's segments after
		st.segments = append(st.segments, result.Segments...)
		if result.IsRequestWrapper {
			st.flags.IsRequestWrapper = true
		}
		if result.Method != "" && st.flags.Method == "" {
			st.flags.Method = result.Method
		}
		return st
	}

	// Bare identifier or self.x: a same-file declaration reference
	if name, ok := expr.LocalName(); ok {
		if visited[name] {
			debug.LogResolve("cycle on %q in %s\n", name, r.file.Path)
			return chainState{status: types.ResolutionCyclic, baseRef: name}
		}
		if decl := r.file.FirstDeclNamed(name); decl != nil && decl.Initializer != nil {
			visited[name] = true
			return r.resolveExpr(decl.Initializer, visited, rc)
		}
		return chainState{status: types.ResolutionOpen, baseRef: name}
	}

	// object.member where object is not the implicit receiver
	if expr.Kind == parser.ExprMemberAccess {
		return r.resolveMemberAccess(expr, visited, rc)
	}

	// Unrecognized shape: no resolution for this node
	return chainState{status: types.ResolutionOpen, baseRef: expr.Render()}
}

// resolveMemberAccess handles Type.member accesses within the same file
// and hands everything else to the cross-scope resolver.
func (r *FileResolver) resolveMemberAccess(expr *parser.Expr, visited map[string]bool, rc *resolveContext) chainState {
	// Static member of a type declared in this file resolves locally
	if expr.Base.IsIdentifier() {
		if td := r.file.TypeNamed(expr.Base.Name); td != nil {
			if member := r.memberDecl(td.Name, expr.Name); member != nil && member.Initializer != nil {
				key := td.Name + "." + expr.Name
				if visited[key] {
					return chainState{status: types.ResolutionCyclic, baseRef: key}
				}
				visited[key] = true
				return r.resolveExpr(member.Initializer, visited, rc)
			}
		}
	}

	ref := types.UnresolvedReference{
		ObjectExpression: expr.Base.Render(),
		MemberName:       expr.Name,
		OriginFile:       r.file.Path,
		OriginLine:       expr.Line,
	}

	if r.cross != nil {
		result := r.cross.ResolveMember(expr.Base, expr.Name, r.file.Path, rc)
		if result.Status == types.ResolutionComplete || len(result.Segments) > 0 {
			return chainState{
				segments: result.Segments,
				baseRef:  result.BaseReference,
				status:   result.Status,
			}
		}
		switch result.Status {
		case types.ResolutionCyclic, types.ResolutionDepthExceeded:
			return chainState{status: result.Status, baseRef: ref.ObjectExpression + "." + ref.MemberName}
		}
	}

	// Not resolvable here: leave the chain open but keep building
	return chainState{
		status:     types.ResolutionOpen,
		baseRef:    ref.ObjectExpression + "." + ref.MemberName,
		unresolved: []types.UnresolvedReference{ref},
	}
}

// memberDecl finds a member declaration of the named type in this file
func (r *FileResolver) memberDecl(typeName, memberName string) *parser.PropertyDecl {
	for _, decl := range r.file.DeclsNamed(memberName) {
		if decl.Decl.OwnerType == typeName {
			return decl
		}
	}
	return nil
}

// visitKey is the cycle-guard key for a declaration
func visitKey(decl *parser.PropertyDecl) string {
	if decl.Decl.OwnerType != "" {
		return decl.Decl.OwnerType + "." + decl.Decl.Name
	}
	return decl.Decl.Name
}
