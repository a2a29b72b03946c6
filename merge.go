package wf

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// mergeCtx threads a synthetic-name counter through one top-level Merge
// call. It is not package state: each call to Merge owns its own counter,
// keeping the algorithm pure and safe to run concurrently on disjoint
// graphs (spec.md §5).
type mergeCtx struct {
	seq *int
	log *logrus.Logger
}

func (c *mergeCtx) fresh(prefix string) string {
	n := *c.seq
	*c.seq++
	return fmt.Sprintf("%s%d", prefix, n)
}

// Merge joins two workflow op graphs into one, sharing their common
// source and namespacing any divergence under lEft/rIght. It returns the
// DocVars locating a's and b's outputs inside the merged document
// (spec.md §4.3).
func Merge(a, b Op) (DocVar, DocVar, Op) {
	return MergeWithLog(a, b, nil)
}

// MergeWithLog is Merge with an attached logger for observational tracing
// of which dispatch-table case fired.
func MergeWithLog(a, b Op, log *logrus.Logger) (DocVar, DocVar, Op) {
	ctx := &mergeCtx{seq: new(int), log: log}
	return merge(ctx, a, b)
}

func merge(ctx *mergeCtx, a, b Op) (DocVar, DocVar, Op) {
	// case 1: identical operands
	if opEqual(a, b) {
		traceMerge(ctx.log, 1, "identical operands")
		return ROOT, ROOT, a
	}

	aPure, aIsPure := a.(*PureOpNode)
	bPure, bIsPure := b.(*PureOpNode)

	// case 2: Pure vs Pure
	if aIsPure && bIsPure {
		traceMerge(ctx.log, 2, "Pure vs Pure")
		merged := MakePure(bson.D{{Key: "lEft", Value: aPure.Value}, {Key: "rIght", Value: bPure.Value}})
		return Field("lEft"), Field("rIght"), merged
	}
	// case 3: Pure vs any
	if aIsPure {
		traceMerge(ctx.log, 3, "Pure vs any")
		shape := lrShape(NodeExpr(Lit{Value: aPure.Value}), NodeExpr(Ref{V: ROOT}))
		return Field("lEft"), Field("rIght"), MakeProject(b, shape)
	}
	if bIsPure {
		traceMerge(ctx.log, 3, "any vs Pure (delegated)")
		shape := lrShape(NodeExpr(Ref{V: ROOT}), NodeExpr(Lit{Value: bPure.Value}))
		return Field("lEft"), Field("rIght"), MakeProject(a, shape)
	}

	aGeo, aIsGeo := a.(*GeoNearOpNode)
	bGeo, bIsGeo := b.(*GeoNearOpNode)

	// case 4: GeoNear vs Pipeline
	if aIsGeo {
		if wp, ok := asNonSourceWPipeline(b); ok {
			traceMerge(ctx.log, 4, "GeoNear vs Pipeline")
			return foldOverSource(ctx, wp, aGeo)
		}
	}
	if bIsGeo {
		if wp, ok := asNonSourceWPipeline(a); ok {
			traceMerge(ctx.log, 4, "Pipeline vs GeoNear (delegated)")
			baseB, baseA, op := foldOverSource(ctx, wp, bGeo)
			return baseA, baseB, op
		}
	}

	aProj, aIsProj := a.(*ProjectOpNode)
	bProj, bIsProj := b.(*ProjectOpNode)

	// case 5 & 7: Project vs shared-source / Project vs Source — both
	// collapse to the same recursive formula; when b happens to equal
	// proj.Src the recursion's own case-1 check makes it a no-op, which
	// is exactly rule 5's "shared source" fast path.
	if aIsProj {
		if _, isSource := b.(SourceOp); isSource || opEqual(aProj.Src, b) {
			traceMerge(ctx.log, 5, "Project vs Source")
			return projectVsOp(ctx, aProj, b)
		}
	}
	if bIsProj {
		if _, isSource := a.(SourceOp); isSource || opEqual(bProj.Src, a) {
			traceMerge(ctx.log, 5, "Source vs Project (delegated)")
			baseB, baseA, op := projectVsOp(ctx, bProj, a)
			return baseA, baseB, op
		}
	}

	// case 6: ShapePreserving vs Pipeline
	if aSP, ok := a.(ShapePreservingOp); ok {
		if wp, ok2 := asNonSourceWPipeline(b); ok2 {
			traceMerge(ctx.log, 6, "ShapePreserving vs Pipeline")
			return foldOverSource(ctx, wp, aSP)
		}
	}
	if bSP, ok := b.(ShapePreservingOp); ok {
		if wp, ok2 := asNonSourceWPipeline(a); ok2 {
			traceMerge(ctx.log, 6, "Pipeline vs ShapePreserving (delegated)")
			baseB, baseA, op := foldOverSource(ctx, wp, bSP)
			return baseA, baseB, op
		}
	}

	aUnwind, aIsUnwind := a.(*UnwindOpNode)
	bUnwind, bIsUnwind := b.(*UnwindOpNode)
	aGroup, aIsGroup := a.(*GroupOpNode)
	bGroup, bIsGroup := b.(*GroupOpNode)

	// case 8: Unwind vs Group
	if aIsUnwind && bIsGroup {
		traceMerge(ctx.log, 8, "Unwind vs Group")
		baseB, baseA, op := foldOverSource(ctx, aUnwind, bGroup)
		return baseA, baseB, op
	}
	if bIsUnwind && aIsGroup {
		traceMerge(ctx.log, 8, "Group vs Unwind (delegated)")
		return foldOverSource(ctx, bUnwind, aGroup)
	}

	// case 9: Group vs Group with equal `by`
	if aIsGroup && bIsGroup {
		if merged, baseA, baseB, ok := tryMergeEqualGroups(ctx, aGroup, bGroup); ok {
			traceMerge(ctx.log, 9, "Group vs Group, equal by")
			return baseA, baseB, merged
		}
	}

	// case 10: Group vs Pipeline (a bare source included — it still needs
	// the push+unwind materialization, same as any other non-Group shape).
	if aIsGroup && !bIsGroup {
		if _, isUDF := asUDF(b); !isUDF {
			traceMerge(ctx.log, 10, "Group vs Pipeline")
			return groupVsPipeline(ctx, aGroup, b)
		}
	}
	if bIsGroup && !aIsGroup {
		if _, isUDF := asUDF(a); !isUDF {
			traceMerge(ctx.log, 10, "Pipeline vs Group (delegated)")
			baseB, baseA, op := groupVsPipeline(ctx, bGroup, a)
			return baseA, baseB, op
		}
	}

	// case 11: Project vs Project
	if aIsProj && bIsProj {
		traceMerge(ctx.log, 11, "Project vs Project")
		return mergeProjects(ctx, aProj, bProj)
	}

	// case 12: Project vs WPipeline
	if aIsProj {
		if _, ok := asNonSourceWPipeline(b); ok {
			traceMerge(ctx.log, 12, "Project vs WPipeline")
			return projectVsOp(ctx, aProj, b)
		}
	}
	if bIsProj {
		if _, ok := asNonSourceWPipeline(a); ok {
			traceMerge(ctx.log, 12, "WPipeline vs Project (delegated)")
			baseB, baseA, op := projectVsOp(ctx, bProj, a)
			return baseA, baseB, op
		}
	}

	aRedact, aIsRedact := a.(*RedactOpNode)
	bRedact, bIsRedact := b.(*RedactOpNode)

	// case 13: Redact vs Redact
	if aIsRedact && bIsRedact {
		traceMerge(ctx.log, 13, "Redact vs Redact")
		return mergeRedacts(ctx, aRedact, bRedact)
	}

	// case 14 & 15: Unwind vs Unwind
	if aIsUnwind && bIsUnwind {
		traceMerge(ctx.log, 14, "Unwind vs Unwind")
		return mergeUnwinds(ctx, aUnwind, bUnwind)
	}

	// case 16: Unwind vs Redact
	if aIsUnwind && bIsRedact {
		traceMerge(ctx.log, 16, "Unwind vs Redact")
		baseB, baseA, op := foldOverSource(ctx, aUnwind, bRedact)
		return baseA, baseB, op
	}
	if bIsUnwind && aIsRedact {
		traceMerge(ctx.log, 16, "Redact vs Unwind (delegated)")
		return foldOverSource(ctx, bUnwind, aRedact)
	}

	// case 17 is subsumed by the disjoint fallback (case 20) below: both
	// wrap each branch under lEft/rIght inside a FoldLeft, and the UDF
	// boundary (Read vs Map) has no more specific structural case to
	// recurse through, so it always lands there.

	// case 18: Map vs Project (any UDF op vs Project)
	if _, ok := asUDF(a); ok && bIsProj {
		traceMerge(ctx.log, 18, "UDF vs Project")
		return udfVsProject(ctx, a, bProj)
	}
	if _, ok := asUDF(b); ok && aIsProj {
		traceMerge(ctx.log, 18, "Project vs UDF (delegated)")
		baseB, baseA, op := udfVsProject(ctx, b, aProj)
		return baseA, baseB, op
	}

	// case 19: Any vs WPipeline (default)
	if wp, ok := asNonSourceWPipeline(b); ok {
		traceMerge(ctx.log, 19, "Any vs WPipeline")
		return foldOverSource(ctx, wp, a)
	}
	if wp, ok := asNonSourceWPipeline(a); ok {
		traceMerge(ctx.log, 19, "WPipeline vs Any (delegated)")
		baseB, baseA, op := foldOverSource(ctx, wp, b)
		return baseA, baseB, op
	}

	// case 20: fallback — two disjoint branches
	traceMerge(ctx.log, 20, "disjoint fallback")
	lBranch := wrapProjectNamespace(a, "lEft")
	rBranch := wrapProjectNamespace(b, "rIght")
	return Field("lEft"), Field("rIght"), MakeFoldLeft(lBranch, rBranch)
}

// foldOverSource implements the common "recurse into the other op's
// source, then reparent" shape shared by cases 4, 6, 8, 16 and the
// default case 19: keep is reparented directly on top of the merged
// common source, and other's base is whatever the recursive merge found.
func foldOverSource(ctx *mergeCtx, keep SingleSourceOp, other Op) (DocVar, DocVar, Op) {
	baseOther, baseSrc, mergedSrc := merge(ctx, other, keep.Source())
	reparented := keep.Reparent(mergedSrc)
	rewrittenKeep, newBaseKeep := rewrite(reparented, baseSrc)
	return baseOther, newBaseKeep, rewrittenKeep
}

// rewrite is the §4.3.1 helper: rebase every reference op makes through
// base, and reset the base to ROOT if op is a Group or Project (both
// produce an entirely new document shape).
func rewrite(op Op, base DocVar) (Op, DocVar) {
	rewritten := op
	if !base.IsRoot() {
		if rr, ok := op.(refRewritable); ok {
			rewritten = rr.rewriteRefs(baseRebase(base))
		}
	}
	newBase := base
	if resetsBase(op) {
		newBase = ROOT
	}
	return rewritten, newBase
}

// projectVsOp implements cases 5, 7 and 12: merge proj's source with
// other, then wrap the result in a single project labeling proj's
// (rebased) shape under lEft and other's output under rIght.
func projectVsOp(ctx *mergeCtx, proj *ProjectOpNode, other Op) (DocVar, DocVar, Op) {
	baseProjSrc, baseOther, mergedSrc := merge(ctx, proj.Src, other)
	lEft := reshapeNodeRebase(proj.Shape, baseProjSrc)
	rIght := NodeExpr(Ref{V: baseOther})
	shape := lrShape(lEft, rIght)
	return Field("lEft"), Field("rIght"), MakeProject(mergedSrc, shape)
}

// mergeProjects implements case 11: merge sources, then attempt a
// straight reshape merge; only fall back to lEft/rIght labeling on a
// field conflict.
func mergeProjects(ctx *mergeCtx, a, b *ProjectOpNode) (DocVar, DocVar, Op) {
	baseA, baseB, mergedSrc := merge(ctx, a.Src, b.Src)
	shapeA := reshapeNodeRebase(a.Shape, baseA).(Reshape)
	shapeB := reshapeNodeRebase(b.Shape, baseB).(Reshape)
	if combined, ok := MergeReshape(shapeA, shapeB); ok {
		return ROOT, ROOT, MakeProject(mergedSrc, combined)
	}
	shape := lrShape(shapeA, shapeB)
	return Field("lEft"), Field("rIght"), MakeProject(mergedSrc, shape)
}

// mergeRedacts implements case 13: merge sources, then sequence both
// redactions (redact is order-sensitive in general but commutable here
// since each only prunes, never renames, the document).
func mergeRedacts(ctx *mergeCtx, a, b *RedactOpNode) (DocVar, DocVar, Op) {
	baseA, baseB, mergedSrc := merge(ctx, a.Src, b.Src)
	eA := RewriteRefs(a.E, baseRebase(baseA))
	eB := RewriteRefs(b.E, baseRebase(baseB))
	merged := MakeRedact(MakeRedact(mergedSrc, eA), eB)
	return baseA, baseB, merged
}

// mergeUnwinds implements cases 14 and 15: merge sources, then emit one
// shared unwind if both sides unwind the same field, else both in order.
func mergeUnwinds(ctx *mergeCtx, a, b *UnwindOpNode) (DocVar, DocVar, Op) {
	baseA, baseB, mergedSrc := merge(ctx, a.Src, b.Src)
	pathA := rebaseField(a.Path, baseRebase(baseA))
	pathB := rebaseField(b.Path, baseRebase(baseB))
	if pathA.Equal(pathB) {
		merged := MakeUnwind(mergedSrc, pathA, a.IncludeArrayIndex, a.PreserveNullAndEmptyArrays)
		return baseA, baseB, merged
	}
	merged := MakeUnwind(MakeUnwind(mergedSrc, pathA, a.IncludeArrayIndex, a.PreserveNullAndEmptyArrays),
		pathB, b.IncludeArrayIndex, b.PreserveNullAndEmptyArrays)
	return baseA, baseB, merged
}

// tryMergeEqualGroups implements case 9: two groups sharing the same `by`
// expression merge into one group using fresh names for every entry from
// both sides, followed by a project regrouping those names under
// lEft/rIght (Group cannot produce nested structure directly).
func tryMergeEqualGroups(ctx *mergeCtx, a, b *GroupOpNode) (Op, DocVar, DocVar, bool) {
	baseA, baseB, mergedSrc := merge(ctx, a.Src, b.Src)
	byA := reshapeNodeRebase(wrapByNode(a.By), baseA)
	byB := reshapeNodeRebase(wrapByNode(b.By), baseB)
	if !bsonDeepEqual(nodeToBSON(byA), nodeToBSON(byB)) {
		return nil, DocVar{}, DocVar{}, false
	}

	names := make([]string, 0, len(a.Names)+len(b.Names))
	grouped := make(map[string]Expr, len(a.Names)+len(b.Names))
	lFields, lNodes := []string{}, []ReshapeNode{}
	rFields, rNodes := []string{}, []ReshapeNode{}

	for _, n := range a.Names {
		fresh := ctx.fresh("_ga")
		names = append(names, fresh)
		grouped[fresh] = RewriteRefs(a.Grouped[n], baseRebase(baseA))
		lFields = append(lFields, n)
		lNodes = append(lNodes, NodeExpr(Ref{V: Field(fresh)}))
	}
	for _, n := range b.Names {
		fresh := ctx.fresh("_gb")
		names = append(names, fresh)
		grouped[fresh] = RewriteRefs(b.Grouped[n], baseRebase(baseB))
		rFields = append(rFields, n)
		rNodes = append(rNodes, NodeExpr(Ref{V: Field(fresh)}))
	}

	newGroup := MakeGroup(mergedSrc, byA, names, grouped)
	shape := lrShape(NewDoc(lFields, lNodes), NewDoc(rFields, rNodes))
	merged := MakeProject(newGroup, shape)
	return merged, Field("lEft"), Field("rIght"), true
}

// groupVsPipeline implements case 10: a group merged with a pipeline adds
// a synthetic push(pipeline's base) field, then unwinds it — effectively
// materializing the pipeline side through the group.
func groupVsPipeline(ctx *mergeCtx, group *GroupOpNode, pipeline Op) (DocVar, DocVar, Op) {
	baseGroupSrc, basePipeline, mergedWithPipeline := merge(ctx, group.Src, pipeline)
	by := reshapeNodeRebase(wrapByNode(group.By), baseGroupSrc)
	grouped := make(map[string]Expr, len(group.Names)+1)
	for _, n := range group.Names {
		grouped[n] = RewriteRefs(group.Grouped[n], baseRebase(baseGroupSrc))
	}
	fresh := ctx.fresh("_p")
	grouped[fresh] = Push(Ref{V: basePipeline})
	names := append(append([]string(nil), group.Names...), fresh)

	newGroup := MakeGroup(mergedWithPipeline, by, names, grouped)
	merged := MakeUnwind(newGroup, Field(fresh), "", false)
	return ROOT, Field(fresh), merged
}

// udfVsProject implements case 18: merge a UDF op (opaque to further
// structural decomposition) with a project's source, then wrap in a
// project labeling the UDF's output under lEft and the project's
// (rebased) shape under rIght.
func udfVsProject(ctx *mergeCtx, udf Op, proj *ProjectOpNode) (DocVar, DocVar, Op) {
	baseUDF, baseProjSrc, mergedSrc := merge(ctx, udf, proj.Src)
	shape := lrShape(NodeExpr(Ref{V: baseUDF}), reshapeNodeRebase(proj.Shape, baseProjSrc))
	return Field("lEft"), Field("rIght"), MakeProject(mergedSrc, shape)
}

// --- small shared helpers ---

func lrShape(lEft, rIght ReshapeNode) Reshape {
	return NewDoc([]string{"lEft", "rIght"}, []ReshapeNode{lEft, rIght})
}

func wrapProjectNamespace(op Op, label string) Op {
	return MakeProject(op, NewDoc([]string{label}, []ReshapeNode{NodeExpr(Ref{V: ROOT})}))
}

func reshapeNodeRebase(node ReshapeNode, base DocVar) ReshapeNode {
	if base.IsRoot() {
		return node
	}
	return node.mapUp(func(e Expr) Expr { return RewriteRefs(e, baseRebase(base)) })
}

// wrapByNode normalizes a Group's By (Expr or Reshape) into a ReshapeNode
// for reshapeNodeRebase; By is already one when stored on GroupOpNode, so
// this is the identity, kept as a named seam for clarity at call sites.
func wrapByNode(by ReshapeNode) ReshapeNode { return by }

func asNonSourceWPipeline(op Op) (WPipelineOp, bool) {
	if _, isSource := op.(SourceOp); isSource {
		return nil, false
	}
	wp, ok := op.(WPipelineOp)
	return wp, ok
}

func asUDF(op Op) (SingleSourceOp, bool) {
	switch op.(type) {
	case *MapOpNode, *FlatMapOpNode, *ReduceOpNode:
		return op.(SingleSourceOp), true
	default:
		return nil, false
	}
}

// opEqual reports structural equality of two op trees by comparing their
// rendered debug trees — sufficient since DebugNode captures every
// distinguishing detail (selectors/shapes as compact JSON, counts, field
// names) down to the leaves.
func opEqual(a, b Op) bool {
	return debugNodeEqual(a.Render(), b.Render())
}

func debugNodeEqual(x, y *DebugNode) bool {
	if x.Type != y.Type || len(x.Children) != len(y.Children) || len(x.Details) != len(y.Details) {
		return false
	}
	for k, v := range x.Details {
		if y.Details[k] != v {
			return false
		}
	}
	for i := range x.Children {
		if !debugNodeEqual(x.Children[i], y.Children[i]) {
			return false
		}
	}
	return true
}
