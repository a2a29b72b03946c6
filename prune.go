package wf

// fieldSet tracks the fields a downstream consumer needs, as accumulated
// top-down by DeleteUnusedFields (spec.md §4.4). unbounded marks "don't
// know, don't prune" — used once we cross an opaque UDF boundary or a
// multi-source op, since neither can be analyzed field-by-field.
type fieldSet struct {
	unbounded bool
	refs      []DocVar
}

func allFields() fieldSet { return fieldSet{unbounded: true} }

func (fs fieldSet) plus(more []DocVar) fieldSet {
	if fs.unbounded {
		return fs
	}
	return fieldSet{refs: append(append([]DocVar(nil), fs.refs...), more...)}
}

// used reports whether name (a top-level field of a Project/Group output)
// is needed: either some parent ref is a prefix of it, or it is a prefix
// of some parent ref (spec.md's "contains or is contained by").
func (fs fieldSet) used(name string) bool {
	if fs.unbounded {
		return true
	}
	target := Field(name)
	for _, r := range fs.refs {
		if r.Root != "" {
			continue
		}
		if r.StartsWith(target) || target.StartsWith(r) {
			return true
		}
	}
	return false
}

// DeleteUnusedFields removes Project/Group output fields that no
// reachable downstream op references, recursing top-down (spec.md §4.4).
// It never removes a field across an opaque UDF boundary or a
// multi-source op's branches, where pruning conservatively stops.
func DeleteUnusedFields(op Op) Op {
	return prune(op, allFields())
}

func prune(op Op, parentRefs fieldSet) Op {
	switch t := op.(type) {
	case *ProjectOpNode:
		kept := pruneReshape(t.Shape, parentRefs)
		newSrc := prune(t.Src, fieldSet{refs: collectShapeRefs(kept)})
		return &ProjectOpNode{Src: newSrc, Shape: kept}

	case *GroupOpNode:
		keptNames, keptGrouped := pruneGroupFields(t.Names, t.Grouped, parentRefs)
		childRefs := collectReshapeNodeRefs(t.By)
		for _, n := range keptNames {
			childRefs = append(childRefs, collectExprRefs(keptGrouped[n])...)
		}
		newSrc := prune(t.Src, fieldSet{refs: childRefs})
		return &GroupOpNode{Src: newSrc, By: t.By, Names: keptNames, Grouped: keptGrouped}

	case *UnwindOpNode:
		childRefs := parentRefs.plus([]DocVar{t.Path})
		newSrc := prune(t.Src, childRefs)
		return &UnwindOpNode{Src: newSrc, Path: t.Path, IncludeArrayIndex: t.IncludeArrayIndex, PreserveNullAndEmptyArrays: t.PreserveNullAndEmptyArrays}

	case *MapOpNode:
		return &MapOpNode{Src: prune(t.Src, allFields()), Fn: t.Fn}
	case *FlatMapOpNode:
		return &FlatMapOpNode{Src: prune(t.Src, allFields()), Fn: t.Fn}
	case *ReduceOpNode:
		return &ReduceOpNode{Src: prune(t.Src, allFields()), Fn: t.Fn}

	case *FoldLeftOpNode:
		tails := make([]Op, len(t.Tails))
		for i, tail := range t.Tails {
			tails[i] = prune(tail, allFields())
		}
		return &FoldLeftOpNode{Head: prune(t.Head, allFields()), Tails: tails}
	case *JoinOpNode:
		srcs := make([]Op, len(t.Srcs))
		for i, s := range t.Srcs {
			srcs[i] = prune(s, allFields())
		}
		return &JoinOpNode{Srcs: srcs}

	case SingleSourceOp:
		childRefs := parentRefs.plus(collectOwnRefs(t))
		return t.Reparent(prune(t.Source(), childRefs))

	default:
		// Sources: nothing further upstream.
		return op
	}
}

func pruneReshape(shape Reshape, parentRefs fieldSet) Reshape {
	names := shape.Names()
	keptNames := make([]string, 0, len(names))
	keptNodes := make([]ReshapeNode, 0, len(names))
	for _, n := range names {
		if !parentRefs.used(n) {
			continue
		}
		node, _ := shape.Get(n)
		keptNames = append(keptNames, n)
		keptNodes = append(keptNodes, node)
	}
	return NewDoc(keptNames, keptNodes)
}

func pruneGroupFields(names []string, grouped map[string]Expr, parentRefs fieldSet) ([]string, map[string]Expr) {
	keptNames := make([]string, 0, len(names))
	keptGrouped := make(map[string]Expr, len(names))
	for _, n := range names {
		if !parentRefs.used(n) {
			continue
		}
		keptNames = append(keptNames, n)
		keptGrouped[n] = grouped[n]
	}
	return keptNames, keptGrouped
}

// collectRefsFrom runs build against an observing RefFunc that records
// every DocVar it is handed (without rewriting anything), the thread-local
// accumulator pattern spec.md §5 calls out for the refs helper.
func collectRefsFrom(build func(RefFunc)) []DocVar {
	var out []DocVar
	observe := func(v DocVar) (DocVar, bool) {
		out = append(out, v)
		return v, false
	}
	build(observe)
	return out
}

func collectExprRefs(e Expr) []DocVar {
	return collectRefsFrom(func(f RefFunc) { RewriteRefs(e, f) })
}

func collectReshapeNodeRefs(n ReshapeNode) []DocVar {
	return collectRefsFrom(func(f RefFunc) { n.mapUp(func(e Expr) Expr { return RewriteRefs(e, f) }) })
}

func collectShapeRefs(shape Reshape) []DocVar {
	return collectReshapeNodeRefs(shape)
}

// collectOwnRefs gathers the DocVars a WPipelineOp's own fields mention —
// not its source's. Project and Group are handled separately by prune
// (they reset downstream refs entirely rather than adding to them).
func collectOwnRefs(op Op) []DocVar {
	switch t := op.(type) {
	case *MatchOpNode:
		return collectRefsFrom(func(f RefFunc) { t.Sel.RewriteRefs(f) })
	case *SortOpNode:
		out := make([]DocVar, len(t.Fields))
		for i, sf := range t.Fields {
			out[i] = sf.Field
		}
		return out
	case *RedactOpNode:
		return collectExprRefs(t.E)
	case *GeoNearOpNode:
		return collectRefsFrom(func(f RefFunc) { t.Params.Query.RewriteRefs(f) })
	default:
		return nil
	}
}
