package wf

// LimitOpNode is a ShapePreservingOp capping its source to N documents.
type LimitOpNode struct {
	Src Op
	N   int64
}

func (*LimitOpNode) isOp()             {}
func (*LimitOpNode) isShapePreserving() {}

func (l *LimitOpNode) Source() Op            { return l.Src }
func (l *LimitOpNode) Reparent(newSrc Op) Op { return &LimitOpNode{Src: newSrc, N: l.N} }
func (l *LimitOpNode) Stage(DocVar) Stage    { return LimitStage{N: l.N} }
func (l *LimitOpNode) rewriteRefs(RefFunc) Op { return l }

func (l *LimitOpNode) Render() *DebugNode {
	return single("Limit", map[string]string{"n": itoaHash(l.N)}, l.Src)
}

// MakeLimit is Limit's smart constructor, applying two coalescing rules
// (spec.md §4.1):
//
//   - Limit over Limit: take the minimum of the two counts.
//   - Limit over Skip: limit(n)(skip(m)(x)) -> skip(m)(limit(n+m)(x)): the
//     rewritten plan keeps the first n+m documents and then skips m, which
//     yields the same n documents with skip outermost in the IR.
func MakeLimit(src Op, n int64) Op {
	switch s := src.(type) {
	case *LimitOpNode:
		m := n
		if s.N < m {
			m = s.N
		}
		return MakeLimit(s.Src, m)
	case *SkipOpNode:
		return MakeSkip(MakeLimit(s.Src, n+s.N), s.N)
	default:
		return &LimitOpNode{Src: src, N: n}
	}
}
