package wf

// MapOpNode is a UDF op: a two-argument (key, value) -> [key, value]
// function run once per input document. UDF ops are not WPipelineOp —
// they cross the pipeline/JS boundary and are only representable as a
// map-reduce stage (spec.md node table, §4.6).
type MapOpNode struct {
	Src Op
	Fn  JSFunc
}

func (*MapOpNode) isOp()          {}
func (m *MapOpNode) Source() Op   { return m.Src }
func (m *MapOpNode) Reparent(newSrc Op) Op { return &MapOpNode{Src: newSrc, Fn: m.Fn} }
func (m *MapOpNode) Render() *DebugNode {
	return single("Map", map[string]string{"fn": Render(m.Fn)}, m.Src)
}

// FlatMapOpNode is a UDF op: (key, value) -> [[key, value], ...].
type FlatMapOpNode struct {
	Src Op
	Fn  JSFunc
}

func (*FlatMapOpNode) isOp()          {}
func (m *FlatMapOpNode) Source() Op   { return m.Src }
func (m *FlatMapOpNode) Reparent(newSrc Op) Op { return &FlatMapOpNode{Src: newSrc, Fn: m.Fn} }
func (m *FlatMapOpNode) Render() *DebugNode {
	return single("FlatMap", map[string]string{"fn": Render(m.Fn)}, m.Src)
}

// ReduceOpNode is a UDF op: (key, values) -> value, collapsing every
// value sharing a key into one.
type ReduceOpNode struct {
	Src Op
	Fn  JSFunc
}

func (*ReduceOpNode) isOp()          {}
func (r *ReduceOpNode) Source() Op   { return r.Src }
func (r *ReduceOpNode) Reparent(newSrc Op) Op { return &ReduceOpNode{Src: newSrc, Fn: r.Fn} }
func (r *ReduceOpNode) Render() *DebugNode {
	return single("Reduce", map[string]string{"fn": Render(r.Fn)}, r.Src)
}

// MakeMap is Map's smart constructor: Map over Map/FlatMap composes the
// two functions into one (spec.md §4.1's "Map/FlatMap over Map/FlatMap"
// rule) instead of leaving two UDF stages for crush to stitch together.
func MakeMap(src Op, fn JSFunc) Op {
	switch s := src.(type) {
	case *MapOpNode:
		return &MapOpNode{Src: s.Src, Fn: composeMapFns(s.Fn, fn)}
	case *FlatMapOpNode:
		return &FlatMapOpNode{Src: s.Src, Fn: composeFlatMapOverMap(s.Fn, fn)}
	default:
		return &MapOpNode{Src: src, Fn: fn}
	}
}

// MakeFlatMap is FlatMap's smart constructor.
func MakeFlatMap(src Op, fn JSFunc) Op {
	switch s := src.(type) {
	case *MapOpNode:
		return &FlatMapOpNode{Src: s.Src, Fn: composeFlatMapOverFlatMap(mapAsFlatMap(s.Fn), fn)}
	case *FlatMapOpNode:
		return &FlatMapOpNode{Src: s.Src, Fn: composeFlatMapOverFlatMap(s.Fn, fn)}
	default:
		return &FlatMapOpNode{Src: src, Fn: fn}
	}
}

// MakeReduce is Reduce's smart constructor. There is no Reduce-over-Reduce
// fusion rule in the spec — a reducer's output already has a different
// arity contract ((key, values) -> value) than its input, so two stacked
// reducers stay two ops. When the inner one lowers to an open
// MapReduceTask, crush replaces that job's reduce function with the outer
// one.
func MakeReduce(src Op, fn JSFunc) Op {
	return &ReduceOpNode{Src: src, Fn: fn}
}

// composeMapFns builds the (key, value) -> [key, value] function
// equivalent to applying inner then outer.
func composeMapFns(inner, outer JSFunc) JSFunc {
	call := func(fn JSFunc, args ...JSNode) JSNode { return JSCall{Callee: fn, Args: args} }
	idx := func(obj JSNode, i int64) JSNode {
		return JSMember{Obj: obj, PropExpr: JSLiteral{Value: i}, Computed: true}
	}
	return JSFunc{
		Params: []string{"key", "value"},
		Body: []JSNode{
			JSVarDecl{Name: "__kv", Init: call(inner, JSIdent{"key"}, JSIdent{"value"})},
			JSReturn{Value: call(outer, idx(JSIdent{"__kv"}, 0), idx(JSIdent{"__kv"}, 1))},
		},
	}
}

// mapAsFlatMap lifts a (key,value)->[key,value] Map function into the
// (key,value)->[[key,value]] shape FlatMap composition expects.
func mapAsFlatMap(fn JSFunc) JSFunc {
	return JSFunc{
		Params: []string{"key", "value"},
		Body: []JSNode{
			JSReturn{Value: JSArray{Elems: []JSNode{
				JSCall{Callee: fn, Args: []JSNode{JSIdent{"key"}, JSIdent{"value"}}},
			}}},
		},
	}
}

// composeFlatMapOverMap composes a FlatMap source with a following Map:
// run the flatMap, then apply the map to every emitted pair.
func composeFlatMapOverMap(inner JSFunc, outerMap JSFunc) JSFunc {
	return flatMapThenFlatMap(inner, mapAsFlatMap(outerMap))
}

// composeFlatMapOverFlatMap composes two FlatMap functions, flattening
// the outer's output over every pair the inner produces.
func composeFlatMapOverFlatMap(inner, outer JSFunc) JSFunc {
	return flatMapThenFlatMap(inner, outer)
}

func flatMapThenFlatMap(inner, outer JSFunc) JSFunc {
	pairs := JSIdent{"__pairs"}
	out := JSIdent{"__out"}
	sub := JSIdent{"__sub"}
	p := JSIdent{"__p"}
	idx := func(obj JSNode, i int64) JSNode {
		return JSMember{Obj: obj, PropExpr: JSLiteral{Value: i}, Computed: true}
	}
	return JSFunc{
		Params: []string{"key", "value"},
		Body: []JSNode{
			JSVarDecl{Name: "__out", Init: JSArray{}},
			JSVarDecl{Name: "__pairs", Init: JSCall{Callee: inner, Args: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
			JSForIn{
				Var: "__i",
				Obj: pairs,
				Body: []JSNode{
					JSVarDecl{Name: "__p", Init: JSMember{Obj: pairs, PropExpr: JSIdent{"__i"}, Computed: true}},
					JSVarDecl{Name: "__sub", Init: JSCall{Callee: outer, Args: []JSNode{idx(p, 0), idx(p, 1)}}},
					JSForIn{
						Var: "__j",
						Obj: sub,
						Body: []JSNode{
							JSExprStmt{Expr: JSCall{
								Callee: JSMember{Obj: out, Prop: "push"},
								Args:   []JSNode{JSMember{Obj: sub, PropExpr: JSIdent{"__j"}, Computed: true}},
							}},
						},
					},
				},
			},
			JSReturn{Value: out},
		},
	}
}
