package wf

// FoldLeftOpNode is a Multi-source op of arity 1+N: a head op whose
// output is folded over by a non-empty list of tail ops, each reducing
// into the running accumulator (spec.md node table). finalize ensures the
// head is wrapped under {value: ROOT} and every tail ends in a Reduce;
// crush requires every tail to lower to a MapReduceTask.
type FoldLeftOpNode struct {
	Head  Op
	Tails []Op
}

func (*FoldLeftOpNode) isOp() {}

func (f *FoldLeftOpNode) Sources() []Op {
	return append([]Op{f.Head}, f.Tails...)
}

func (f *FoldLeftOpNode) Render() *DebugNode {
	return multi("FoldLeft", nil, f.Sources()...)
}

// MakeFoldLeft is FoldLeft's smart constructor. It panics via
// ErrInvalidFoldLeftTail if called with no tails (FoldLeft's arity is
// 1+N, N >= 1). FoldLeft over FoldLeft — when head is itself a
// FoldLeftOpNode — flattens into a single FoldLeft over the inner head
// (spec.md §4.1).
func MakeFoldLeft(head Op, tails ...Op) Op {
	if len(tails) == 0 {
		panic(ErrInvalidFoldLeftTail.New())
	}
	if fl, ok := head.(*FoldLeftOpNode); ok {
		flat := append(append([]Op(nil), fl.Tails...), tails...)
		return MakeFoldLeft(fl.Head, flat...)
	}
	return &FoldLeftOpNode{Head: head, Tails: tails}
}
