package wf

// JoinOpNode is a Multi-source op over a set of source ops. Per spec.md
// §9's open question, the ordering/cardinality semantics of the join
// itself are left to the runtime; this layer only carries the source set
// — stored as a slice in stable insertion order so Render and structHash
// stay deterministic, never as a Go map.
type JoinOpNode struct {
	Srcs []Op
}

func (*JoinOpNode) isOp()            {}
func (j *JoinOpNode) Sources() []Op  { return j.Srcs }

func (j *JoinOpNode) Render() *DebugNode {
	return multi("Join", nil, j.Srcs...)
}

// MakeJoin is Join's smart constructor.
func MakeJoin(srcs ...Op) Op {
	if len(srcs) == 0 {
		panic(ErrEmptyJoinSet.New())
	}
	return &JoinOpNode{Srcs: append([]Op(nil), srcs...)}
}
