package wf

// DebugNode is a labeled debug-tree node: its node type is the producing
// op's name, its Children are the op's source ops rendered the same way,
// and Details carries any interesting per-op payload (selectors, reshapes,
// group specs, JS bodies) as plain strings, deliberately not a structured
// AST — this is a narrow reporting contract, not a frontend (spec.md §6).
type DebugNode struct {
	Type     string
	Details  map[string]string
	Children []*DebugNode
}

// leaf builds a DebugNode with no children, for SourceOps.
func leaf(typ string, details map[string]string) *DebugNode {
	return &DebugNode{Type: typ, Details: details}
}

// single builds a DebugNode for a SingleSourceOp.
func single(typ string, details map[string]string, src Op) *DebugNode {
	return &DebugNode{Type: typ, Details: details, Children: []*DebugNode{src.Render()}}
}

// multi builds a DebugNode for a MultiSourceOp.
func multi(typ string, details map[string]string, srcs ...Op) *DebugNode {
	children := make([]*DebugNode, len(srcs))
	for i, s := range srcs {
		children[i] = s.Render()
	}
	return &DebugNode{Type: typ, Details: details, Children: children}
}
