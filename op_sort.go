package wf

// SortOpNode is a ShapePreservingOp ordering its source by a non-empty
// list of (field, ascending) keys.
type SortOpNode struct {
	Src    Op
	Fields []SortField
}

func (*SortOpNode) isOp()             {}
func (*SortOpNode) isShapePreserving() {}

func (s *SortOpNode) Source() Op           { return s.Src }
func (s *SortOpNode) Reparent(newSrc Op) Op { return &SortOpNode{Src: newSrc, Fields: s.Fields} }

func (s *SortOpNode) Stage(base DocVar) Stage {
	st := SortStage{Fields: s.Fields}
	return st.rewriteRefs(baseRebase(base)).(SortStage)
}

func (s *SortOpNode) rewriteRefs(f RefFunc) Op {
	out := make([]SortField, len(s.Fields))
	for i, sf := range s.Fields {
		out[i] = SortField{Field: rebaseField(sf.Field, f), Ascending: sf.Ascending}
	}
	return &SortOpNode{Src: s.Src, Fields: out}
}

func (s *SortOpNode) Render() *DebugNode {
	details := map[string]string{}
	for _, f := range s.Fields {
		dir := "asc"
		if !f.Ascending {
			dir = "desc"
		}
		details[f.Field.String()] = dir
	}
	return single("Sort", details, s.Src)
}

// MakeSort is Sort's smart constructor. There is no Sort-over-Sort
// coalescing rule in the spec (a second sort always supersedes the first
// at the execution level, but this package does not collapse the chain
// since a downstream Limit/Skip may still want to see both keys recorded
// for debugging), so a Sort over a Sort stays two ops.
func MakeSort(src Op, fields []SortField) Op {
	return &SortOpNode{Src: src, Fields: fields}
}

// baseRebase adapts a base DocVar into the RefFunc contract used by
// rewriteRefs, so that Stage(base) can reuse the same traversal logic as
// merge's rewrite helper: every reference is relocated via base.Concat.
func baseRebase(base DocVar) RefFunc {
	return func(v DocVar) (DocVar, bool) {
		if base.IsRoot() {
			return v, false
		}
		return base.Concat(DocVar{Path: v.Path}), true
	}
}
