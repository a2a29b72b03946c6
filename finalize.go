package wf

// Finalize runs the post-construction rewrite rules of spec.md §4.5 once
// over a completed graph, bottom-up, before crush: fusing a UDF with an
// immediately preceding Project (when the project is plain-JS-expressible)
// or Unwind (always, via an equivalent JS flat-map), and normalizing every
// FoldLeft so its head is wrapped under {value: ROOT} and every tail ends
// in a Reduce.
func Finalize(op Op) Op {
	switch t := op.(type) {
	case *MapOpNode:
		src, fn := finalizeUDFSource(finalize1(t.Src), t.Fn, mapKind)
		return &MapOpNode{Src: src, Fn: fn}
	case *FlatMapOpNode:
		src, fn := finalizeUDFSource(finalize1(t.Src), t.Fn, flatMapKind)
		return &FlatMapOpNode{Src: src, Fn: fn}
	case *ReduceOpNode:
		return &ReduceOpNode{Src: finalize1(t.Src), Fn: t.Fn}
	case *FoldLeftOpNode:
		return finalizeFoldLeft(t)
	case SingleSourceOp:
		return t.Reparent(finalize1(t.Source()))
	case MultiSourceOp:
		return finalizeMultiSource(t)
	default:
		return op
	}
}

// finalize1 is Finalize restricted to a single child, used internally so
// every recursive call goes through the same entry point.
func finalize1(op Op) Op { return Finalize(op) }

func finalizeMultiSource(op MultiSourceOp) Op {
	j, ok := op.(*JoinOpNode)
	if !ok {
		return op
	}
	srcs := make([]Op, len(j.Srcs))
	for i, s := range j.Srcs {
		srcs[i] = finalize1(s)
	}
	return &JoinOpNode{Srcs: srcs}
}

type udfKind int

const (
	mapKind udfKind = iota
	flatMapKind
)

// finalizeUDFSource implements the "UDF over Project" and "UDF over
// Unwind" rules. src has already been finalized by the caller.
func finalizeUDFSource(src Op, fn JSFunc, kind udfKind) (Op, JSFunc) {
	switch s := src.(type) {
	case *ProjectOpNode:
		if projectFn, ok := reshapeToMapFn(s.Shape); ok {
			return s.Src, fuseMapBefore(projectFn, fn, kind)
		}
		return src, fn
	case *UnwindOpNode:
		unwindFn := unwindAsFlatMapFn(s)
		return s.Src, fuseFlatMapBefore(unwindFn, fn, kind)
	default:
		return src, fn
	}
}

func fuseMapBefore(inner, outer JSFunc, kind udfKind) JSFunc {
	if kind == mapKind {
		return composeMapFns(inner, outer)
	}
	return composeFlatMapOverFlatMap(mapAsFlatMap(inner), outer)
}

func fuseFlatMapBefore(inner, outer JSFunc, kind udfKind) JSFunc {
	if kind == mapKind {
		return composeFlatMapOverMap(inner, outer)
	}
	return composeFlatMapOverFlatMap(inner, outer)
}

// finalizeFoldLeft implements the FoldLeft normalization rule: the head is
// wrapped under a project of {value: ROOT} (so every branch shares the
// map-reduce carrier field), and every tail must end in a Reduce — a tail
// that doesn't gets a default merge-reduce appended.
func finalizeFoldLeft(t *FoldLeftOpNode) Op {
	head := finalize1(t.Head)
	if !isValueWrapped(head) {
		head = MakeProject(head, NewDoc([]string{"value"}, []ReshapeNode{NodeExpr(Ref{V: ROOT})}))
	}
	tails := make([]Op, len(t.Tails))
	for i, tail := range t.Tails {
		tails[i] = ensureReduceTail(finalize1(tail))
	}
	return MakeFoldLeft(head, tails...)
}

func isValueWrapped(op Op) bool {
	p, ok := op.(*ProjectOpNode)
	if !ok {
		return false
	}
	names := p.Shape.Names()
	return len(names) == 1 && names[0] == "value"
}

func ensureReduceTail(op Op) Op {
	if _, ok := op.(*ReduceOpNode); ok {
		return op
	}
	return MakeReduce(op, defaultMergeReduceFn())
}

// defaultMergeReduceFn builds the conventional map-reduce merge reducer:
// collapse every value sharing a key by merging their documents, last
// write wins on conflicting fields.
func defaultMergeReduceFn() JSFunc {
	out := JSIdent{"__merged"}
	return JSFunc{
		Params: []string{"key", "values"},
		Body: []JSNode{
			JSVarDecl{Name: "__merged", Init: JSObject{}},
			JSForIn{
				Var: "__i",
				Obj: JSIdent{"values"},
				Body: []JSNode{
					JSVarDecl{Name: "__v", Init: JSMember{Obj: JSIdent{"values"}, PropExpr: JSIdent{"__i"}, Computed: true}},
					JSForIn{
						Var: "__k",
						Obj: JSIdent{"__v"},
						Body: []JSNode{
							JSAssign{
								Target: JSMember{Obj: out, PropExpr: JSIdent{"__k"}, Computed: true},
								Value:  JSMember{Obj: JSIdent{"__v"}, PropExpr: JSIdent{"__k"}, Computed: true},
							},
						},
					},
				},
			},
			JSReturn{Value: out},
		},
	}
}

// unwindAsFlatMapFn builds the (key, value) -> [[key, value], ...]
// function equivalent to u, per spec.md §4.5's "UDF over Unwind" rule:
// iterate the array at u.Path, emit one [key, clone] pair per element
// with that field replaced by the element (and, if requested, the array
// index recorded alongside); an empty/missing array emits either nothing
// or the original document once, per PreserveNullAndEmptyArrays.
func unwindAsFlatMapFn(u *UnwindOpNode) JSFunc {
	value := JSIdent{"value"}
	arr := jsFieldAccess(value, u.Path.Path)
	out := JSIdent{"__out"}
	idx := JSIdent{"__i"}
	clone := JSIdent{"__clone"}

	preserveBody := []JSNode{}
	if u.PreserveNullAndEmptyArrays {
		preserveBody = append(preserveBody, JSExprStmt{Expr: JSCall{
			Callee: JSMember{Obj: out, Prop: "push"},
			Args:   []JSNode{JSArray{Elems: []JSNode{JSIdent{"key"}, value}}},
		}})
	}

	cloneBody := []JSNode{
		JSVarDecl{Name: "__clone", Init: JSObject{}},
		JSForIn{
			Var: "__k",
			Obj: value,
			Body: []JSNode{
				JSAssign{
					Target: JSMember{Obj: clone, PropExpr: JSIdent{"__k"}, Computed: true},
					Value:  JSMember{Obj: value, PropExpr: JSIdent{"__k"}, Computed: true},
				},
			},
		},
		JSAssign{Target: jsFieldAccess(clone, u.Path.Path), Value: JSMember{Obj: arr, PropExpr: idx, Computed: true}},
	}
	if u.IncludeArrayIndex != "" {
		cloneBody = append(cloneBody, JSAssign{
			Target: JSMember{Obj: clone, Prop: u.IncludeArrayIndex},
			Value:  idx,
		})
	}
	cloneBody = append(cloneBody, JSExprStmt{Expr: JSCall{
		Callee: JSMember{Obj: out, Prop: "push"},
		Args:   []JSNode{JSArray{Elems: []JSNode{JSIdent{"key"}, clone}}},
	}})

	return JSFunc{
		Params: []string{"key", "value"},
		Body: []JSNode{
			JSVarDecl{Name: "__out", Init: JSArray{}},
			JSIf{
				Cond: JSBinary{Op: "||", Left: JSBinary{Op: "==", Left: arr, Right: JSLiteral{Value: nil}},
					Right: JSBinary{Op: "==", Left: JSMember{Obj: arr, Prop: "length"}, Right: JSLiteral{Value: int64(0)}}},
				Then: preserveBody,
				Else: []JSNode{JSForIn{Var: "__i", Obj: arr, Body: cloneBody}},
			},
			JSReturn{Value: out},
		},
	}
}

func jsFieldAccess(root JSNode, path []string) JSNode {
	cur := root
	for _, seg := range path {
		cur = JSMember{Obj: cur, Prop: seg}
	}
	return cur
}

// reshapeToMapFn renders shape as a (key, value) -> [key, shaped] Map
// function when every leaf expression is plain-JS-expressible; it bails
// (false) the moment it meets an expression it cannot compile, per §4.5's
// "if expressible... else leave as-is".
func reshapeToMapFn(shape Reshape) (JSFunc, bool) {
	self := JSIdent{"value"}
	built, ok := reshapeNodeToJS(shape, self)
	if !ok {
		return JSFunc{}, false
	}
	return JSFunc{
		Params: []string{"key", "value"},
		Body: []JSNode{
			JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, built}}},
		},
	}, true
}

func reshapeNodeToJS(n ReshapeNode, self JSNode) (JSNode, bool) {
	if e, ok := AsExpr(n); ok {
		return exprToJS(e, self)
	}
	r := n.(Reshape)
	if r.IsArr {
		elems := make([]JSNode, len(r.Elems()))
		for i, el := range r.Elems() {
			js, ok := reshapeNodeToJS(el, self)
			if !ok {
				return nil, false
			}
			elems[i] = js
		}
		return JSArray{Elems: elems}, true
	}
	props := make([]JSProp, 0, len(r.Names()))
	for _, name := range r.Names() {
		node, _ := r.Get(name)
		js, ok := reshapeNodeToJS(node, self)
		if !ok {
			return nil, false
		}
		props = append(props, JSProp{Key: name, Value: js})
	}
	return JSObject{Props: props}, true
}

var jsBinaryOps = map[string]string{
	"$add": "+", "$subtract": "-", "$multiply": "*", "$divide": "/",
	"$eq": "===", "$ne": "!==", "$gt": ">", "$gte": ">=", "$lt": "<", "$lte": "<=",
}

// exprToJS compiles the plain-expressible subset of Expr (field refs,
// literals, and simple arithmetic/comparison/boolean operators) to a JS
// expression rooted at self; it declines (false) on anything needing a
// full aggregation-expression evaluator (group ops, conditionals over
// non-trivial branches, string/array/date helpers).
func exprToJS(e Expr, self JSNode) (JSNode, bool) {
	switch v := e.(type) {
	case Lit:
		return JSLiteral{Value: v.Value}, true
	case Ref:
		if v.V.IsRoot() {
			return self, true
		}
		return jsFieldAccess(self, v.V.Path), true
	case OpExpr:
		if jsOp, ok := jsBinaryOps[v.Name]; ok && len(v.Args) == 2 {
			l, ok1 := exprToJS(v.Args[0], self)
			r, ok2 := exprToJS(v.Args[1], self)
			if ok1 && ok2 {
				return JSBinary{Op: jsOp, Left: l, Right: r}, true
			}
		}
		if v.Name == "$not" && len(v.Args) == 1 {
			inner, ok := exprToJS(v.Args[0], self)
			if ok {
				return JSCall{Callee: JSIdent{"__not"}, Args: []JSNode{inner}}, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}
