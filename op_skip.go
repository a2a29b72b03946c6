package wf

// SkipOpNode is a ShapePreservingOp dropping the first N documents of its
// source.
type SkipOpNode struct {
	Src Op
	N   int64
}

func (*SkipOpNode) isOp()             {}
func (*SkipOpNode) isShapePreserving() {}

func (s *SkipOpNode) Source() Op            { return s.Src }
func (s *SkipOpNode) Reparent(newSrc Op) Op { return &SkipOpNode{Src: newSrc, N: s.N} }
func (s *SkipOpNode) Stage(DocVar) Stage    { return SkipStage{N: s.N} }
func (s *SkipOpNode) rewriteRefs(RefFunc) Op { return s }

func (s *SkipOpNode) Render() *DebugNode {
	return single("Skip", map[string]string{"n": itoaHash(s.N)}, s.Src)
}

// MakeSkip is Skip's smart constructor: Skip over Skip sums the two
// counts (spec.md §4.1).
func MakeSkip(src Op, n int64) Op {
	if s, ok := src.(*SkipOpNode); ok {
		return MakeSkip(s.Src, n+s.N)
	}
	return &SkipOpNode{Src: src, N: n}
}
