package wf

// Op is the sum type for workflow operations: the DAG node types that make
// up a plan before it is lowered to a Task. Every Op is an immutable value
// constructed exclusively through its package-level "Make*" smart
// constructor — the concrete struct types are exported so type switches in
// merge.go/prune.go/finalize.go/crush.go can match on them, but callers
// must never build one by hand, since doing so bypasses coalescing
// (spec.md §6, "the only permitted construction entry points").
type Op interface {
	isOp()
	// Render renders this op (and, transitively, its sources) as a
	// labeled debug tree (spec.md §6's debug interface).
	Render() *DebugNode
}

// SourceOp is an Op with no predecessor (Pure, Read).
type SourceOp interface {
	Op
	isSourceOp()
}

// SingleSourceOp is an Op with exactly one predecessor. Reparent returns a
// copy of the op with its source replaced, used by merge and crush to
// graft a rewritten subtree back in without touching the op's own fields.
type SingleSourceOp interface {
	Op
	Source() Op
	Reparent(newSrc Op) Op
}

// WPipelineOp is a SingleSourceOp representable as exactly one native
// aggregation pipeline stage once its source has been crushed
// (spec.md invariant 1). Every single-source op except the UDFs
// (Map/FlatMap/Reduce) implements it.
type WPipelineOp interface {
	SingleSourceOp
	// Stage renders this op's own contribution as a pipeline stage,
	// assuming its source's output lives at base.
	Stage(base DocVar) Stage
}

// ShapePreservingOp is a WPipelineOp whose output document shape equals
// its input shape: Match, Sort, Limit, Skip.
type ShapePreservingOp interface {
	WPipelineOp
	isShapePreserving()
}

// refRewritable is implemented by every WPipelineOp: rewriteRefs relocates
// every DocVar the op's own fields mention (not its source's), used by
// merge's rewrite helper (§4.3.1) and by crush when extending a pipeline
// under a non-ROOT base.
type refRewritable interface {
	rewriteRefs(f RefFunc) Op
}

// MultiSourceOp is an Op with more than one predecessor: FoldLeft, Join.
type MultiSourceOp interface {
	Op
	Sources() []Op
}

// resetsBase reports whether an op resets the document base to ROOT once
// crushed (Group and Project both produce an entirely new document shape,
// so any base accumulated so far no longer applies). Used by both the
// rewrite helper (§4.3.1) and crush (§4.6).
func resetsBase(op Op) bool {
	switch op.(type) {
	case *GroupOpNode, *ProjectOpNode:
		return true
	default:
		return false
	}
}
