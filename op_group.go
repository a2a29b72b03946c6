package wf

// GroupOpNode is a Pipeline op collapsing its source into one document per
// distinct value of By, with Grouped naming the accumulator expression
// computing each output field. Every Grouped value must be a GroupOp
// expression (spec.md invariant 2); Group resets the document base to
// ROOT, same as Project.
type GroupOpNode struct {
	Src     Op
	By      ReshapeNode // Expr (via NodeExpr) or Reshape, the grouping key
	Names   []string    // declared order of Grouped's keys
	Grouped map[string]Expr
}

func (*GroupOpNode) isOp() {}

func (g *GroupOpNode) Source() Op { return g.Src }
func (g *GroupOpNode) Reparent(newSrc Op) Op {
	return &GroupOpNode{Src: newSrc, By: g.By, Names: g.Names, Grouped: g.Grouped}
}
func (g *GroupOpNode) Stage(base DocVar) Stage {
	s := GroupStage{By: g.By, Names: g.Names, Grouped: g.Grouped}
	return s.rewriteRefs(baseRebase(base))
}
func (g *GroupOpNode) rewriteRefs(f RefFunc) Op {
	s := GroupStage{By: g.By, Names: g.Names, Grouped: g.Grouped}
	rewritten := s.rewriteRefs(f).(GroupStage)
	return &GroupOpNode{Src: g.Src, By: rewritten.By, Names: rewritten.Names, Grouped: rewritten.Grouped}
}

func (g *GroupOpNode) Render() *DebugNode {
	details := map[string]string{"by": toCompactJSON(nodeToBSON(g.By))}
	for _, n := range g.Names {
		details[n] = toCompactJSON(g.Grouped[n].ToBSON())
	}
	return single("Group", details, g.Src)
}

// MakeGroup is Group's smart constructor. It panics via
// ErrTypeChangingRewrite if any Grouped value is not a GroupOp expression
// — a caller passing a plain (non-accumulator) expression here has
// violated invariant 2 before the op even exists. The "group-project
// inlining" fusion (folding a following project's renames back into the
// group) lives in MakeProject, which sees the Group as its source.
func MakeGroup(src Op, by ReshapeNode, names []string, grouped map[string]Expr) Op {
	for _, n := range names {
		if !grouped[n].IsGroupOp() {
			panic(ErrTypeChangingRewrite.New(n))
		}
	}
	return &GroupOpNode{Src: src, By: by, Names: names, Grouped: grouped}
}
