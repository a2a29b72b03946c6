package wf

import "fmt"

// PureOpNode wraps a literal BSON value as a zero-arity source: the plan
// "reads" a single constant document (or array of documents) rather than
// a collection. Grounded on no teacher analogue; the node exists purely
// to satisfy spec.md's node table.
type PureOpNode struct {
	Value interface{}
}

func (*PureOpNode) isOp()       {}
func (*PureOpNode) isSourceOp() {}

func (p *PureOpNode) Render() *DebugNode {
	return leaf("Pure", map[string]string{"value": fmt.Sprintf("%v", p.Value)})
}

// MakePure is Pure's smart constructor. A source op has no children to
// coalesce against, so it never rewrites itself.
func MakePure(value interface{}) Op {
	return &PureOpNode{Value: value}
}
