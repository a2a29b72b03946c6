package wf

// MatchOpNode is a ShapePreservingOp filtering its source by a Selector.
// It is the only op with a non-trivial pipelinability decision (§4.7):
// crush treats it as a pipeline $match stage unless its Selector carries a
// JS predicate (Selector.HasJS), in which case it falls back to a
// map-reduce mapper.
type MatchOpNode struct {
	Src Op
	Sel Selector
}

func (*MatchOpNode) isOp()             {}
func (*MatchOpNode) isShapePreserving() {}

func (m *MatchOpNode) Source() Op            { return m.Src }
func (m *MatchOpNode) Reparent(newSrc Op) Op { return &MatchOpNode{Src: newSrc, Sel: m.Sel} }

func (m *MatchOpNode) Stage(base DocVar) Stage {
	return MatchStage{Sel: m.Sel.RewriteRefs(baseRebase(base))}
}

func (m *MatchOpNode) rewriteRefs(f RefFunc) Op {
	return &MatchOpNode{Src: m.Src, Sel: m.Sel.RewriteRefs(f)}
}

func (m *MatchOpNode) Render() *DebugNode {
	return single("Match", map[string]string{"selector": m.Sel.CompactJSON()}, m.Src)
}

// CompactJSON renders a Selector's BSON form as compact JSON, for debug
// trees and logging (mirrors the teacher's Filter.CompactJSON).
func (s Selector) CompactJSON() string { return toCompactJSON(s.ToBSON()) }

// MakeMatch is Match's smart constructor, applying two coalescing rules
// (spec.md §4.1):
//
//   - Match over Match: AND the two selectors into one Match.
//   - Match over Sort: swap so the sort runs after the match (filtering
//     before sorting is always at least as cheap, and never changes the
//     result since Match is shape-preserving and order-agnostic).
func MakeMatch(src Op, sel Selector) Op {
	switch s := src.(type) {
	case *MatchOpNode:
		return MakeMatch(s.Src, s.Sel.And(sel))
	case *SortOpNode:
		return MakeSort(MakeMatch(s.Src, sel), s.Fields)
	default:
		return &MatchOpNode{Src: src, Sel: sel}
	}
}
