package wf

// crush lowers a finalized, pruned op graph to a Task tree (spec.md §4.6).
// It returns the DocVar at which the op's own output now lives relative
// to the Task it returns — ROOT for sources, joins and fold-lefts and once
// a stage resets the shape (Group, Project), the map-reduce "value" field
// for anything lowered onto a MapReduceTask, and srcBase unchanged when a
// pipeline stage merely filters/reorders/limits without touching shape.
func crush(op Op, cfg *Config) (DocVar, Task) {
	switch t := op.(type) {
	case *PureOpNode:
		traceCrush(cfg.log, op, "pure source")
		return ROOT, PureTask{Value: t.Value}

	case *ReadOpNode:
		traceCrush(cfg.log, op, "read source")
		return ROOT, ReadTask{Coll: t.Coll}

	case *MatchOpNode:
		return crushMatch(t, cfg)

	case *MapOpNode:
		return crushUDF(t.Src, t.Fn, udfMap, cfg)
	case *FlatMapOpNode:
		return crushUDF(t.Src, t.Fn, udfFlatMap, cfg)
	case *ReduceOpNode:
		return crushUDF(t.Src, t.Fn, udfReduce, cfg)

	case *FoldLeftOpNode:
		return crushFoldLeft(t, cfg)

	case *JoinOpNode:
		srcs := make([]Task, len(t.Srcs))
		for i, s := range t.Srcs {
			_, task := crush(s, cfg)
			srcs[i] = task
		}
		traceCrush(cfg.log, op, "join")
		return ROOT, &JoinTask{Srcs: srcs}

	case WPipelineOp:
		return crushPipeline(t, cfg)

	default:
		panic(ErrUnsupportedJS.New("crush: unreachable op type"))
	}
}

// crushPipeline handles every WPipelineOp uniformly: crush the source,
// render this op's own stage against the source's current base, and
// either extend an already-open PipelineTask or open a new one over
// whatever non-pipeline task the source lowered to.
func crushPipeline(op WPipelineOp, cfg *Config) (DocVar, Task) {
	srcBase, srcTask := crush(op.Source(), cfg)
	stage := op.Stage(srcBase)

	newBase := srcBase
	if resetsBase(op) {
		newBase = ROOT
	}

	if pt, ok := srcTask.(*PipelineTask); ok {
		traceCrush(cfg.log, op, "extend pipeline")
		stages := append(append([]Stage(nil), pt.Stages...), stage)
		return newBase, &PipelineTask{Src: pt.Src, Stages: stages}
	}
	traceCrush(cfg.log, op, "open pipeline")
	return newBase, &PipelineTask{Src: srcTask, Stages: []Stage{stage}}
}

// crushMatch implements §4.7's pipelinability state machine: a Match
// whose selector carries no JS predicate is just another pipeline stage;
// one that does cannot run inside an aggregation pipeline at all and
// instead becomes an identity map-reduce job scoped by that selector as
// its input query.
func crushMatch(m *MatchOpNode, cfg *Config) (DocVar, Task) {
	if !m.Sel.HasJS() {
		traceCrush(cfg.log, m, "pipelinable match")
		return crushPipeline(m, cfg)
	}
	srcBase, srcTask := crush(m.Src, cfg)
	traceCrush(cfg.log, m, "non-pipelinable match, map-reduce fallback")
	mr := &MapReduceTask{
		Src:       srcTask,
		Map:       identityMapFn(),
		Reduce:    identityReduceFn(),
		Selection: m.Sel.RewriteRefs(baseRebase(srcBase)),
	}
	return Field("value"), mr
}

type udfArity int

const (
	udfMap udfArity = iota
	udfFlatMap
	udfReduce
)

// crushUDF implements §4.6's Map/FlatMap/Reduce lowering: attach to an
// already-open, unfinalized MapReduceTask where the signatures line up,
// absorb a small compatible match/sort/limit prefix directly into a fresh
// map-reduce job's input fields, or fall back to wrapping the crushed
// source in a fresh job outright.
func crushUDF(src Op, fn JSFunc, arity udfArity, cfg *Config) (DocVar, Task) {
	srcBase, srcTask := crush(src, cfg)

	if mr, ok := srcTask.(*MapReduceTask); ok && mr.Finalize == nil {
		switch arity {
		case udfMap:
			finFn := fn
			attached := *mr
			attached.Finalize = &finFn
			return Field("value"), &attached
		case udfReduce:
			attached := *mr
			attached.Reduce = fn
			return Field("value"), &attached
		}
		// FlatMap can't be expressed as a finalizer (1:1) or a reduce
		// (N:1); it falls through to the prefix-absorption/fresh-job
		// paths below, stacking a second job over the first.
	}

	if prefix, tail, ok := absorbablePrefix(src); ok {
		tailBase, tailTask := crush(tail, cfg)
		mr := &MapReduceTask{Src: tailTask}
		for _, st := range prefix {
			switch p := st.(type) {
			case *MatchOpNode:
				mr.Selection = p.Sel.RewriteRefs(baseRebase(tailBase))
			case *SortOpNode:
				mr.InputSort = rebaseSortFields(p.Fields, tailBase)
			case *LimitOpNode:
				mr.InputLimit = p.N
			}
		}
		setUDFFns(mr, fn, arity)
		traceCrush(cfg.log, src, "absorbed match/sort/limit prefix into map-reduce")
		return Field("value"), mr
	}

	mr := &MapReduceTask{Src: srcTask}
	setUDFFns(mr, fn, arity)
	traceCrush(cfg.log, src, "fresh map-reduce job")
	_ = srcBase
	return Field("value"), mr
}

func setUDFFns(mr *MapReduceTask, fn JSFunc, arity udfArity) {
	switch arity {
	case udfReduce:
		mr.Map = identityMapFn()
		mr.Reduce = fn
	default: // udfMap, udfFlatMap: both produce (key, value) pairs directly
		mr.Map = fn
		mr.Reduce = identityReduceFn()
	}
}

// absorbablePrefix walks down from op through at most one Match, one
// Sort and one Limit (in any order, any subset), stopping at the first
// op that isn't one of those three. It reports ok only if it found at
// least one such stage to absorb; prefix is ordered outermost-first.
func absorbablePrefix(op Op) (prefix []Op, tail Op, ok bool) {
	var haveMatch, haveSort, haveLimit bool
	cur := op
	for {
		switch t := cur.(type) {
		case *MatchOpNode:
			if haveMatch {
				return nil, nil, false
			}
			haveMatch = true
			prefix = append(prefix, t)
			cur = t.Src
			continue
		case *SortOpNode:
			if haveSort {
				return nil, nil, false
			}
			haveSort = true
			prefix = append(prefix, t)
			cur = t.Src
			continue
		case *LimitOpNode:
			if haveLimit {
				return nil, nil, false
			}
			haveLimit = true
			prefix = append(prefix, t)
			cur = t.Src
			continue
		}
		break
	}
	if len(prefix) == 0 {
		return nil, nil, false
	}
	return prefix, cur, true
}

func rebaseSortFields(fields []SortField, base DocVar) []SortField {
	out := make([]SortField, len(fields))
	rebase := baseRebase(base)
	for i, f := range fields {
		out[i] = SortField{Field: rebaseField(f.Field, rebase), Ascending: f.Ascending}
	}
	return out
}

// crushFoldLeft implements §4.6's FoldLeft lowering: crush the head as
// any ordinary op, then crush every tail, each of which must land on a
// MapReduceTask — finalize is responsible for guaranteeing this by
// appending a default merge-reduce to any tail that doesn't already end
// in one.
func crushFoldLeft(f *FoldLeftOpNode, cfg *Config) (DocVar, Task) {
	_, headTask := crush(f.Head, cfg)
	tails := make([]*MapReduceTask, len(f.Tails))
	for i, tailOp := range f.Tails {
		_, tailTask := crush(tailOp, cfg)
		mr, ok := tailTask.(*MapReduceTask)
		if !ok {
			panic(ErrFoldLeftTailNotReducible.New())
		}
		mr.OutAction = foldTailOutAction
		tails[i] = mr
	}
	traceCrush(cfg.log, f, "fold left")
	return ROOT, &FoldLeftTask{Head: headTask, Tails: tails}
}

// foldTailOutAction is the out-action every FoldLeft tail is rewritten to
// (spec.md §4.6): the runtime folds each tail's map-reduce output into the
// running accumulator instead of materializing it on its own.
const foldTailOutAction = "reduce into accumulator"

// identityMapFn is the (key, value) -> [key, value] map used to turn a
// plain selection (one that can't run as a pipeline $match) into a
// map-reduce job without altering documents.
func identityMapFn() JSFunc {
	return JSFunc{
		Params: []string{"key", "value"},
		Body: []JSNode{
			JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
		},
	}
}

// identityReduceFn is the (key, values) -> values[0] reduce paired with
// identityMapFn and with any Map/FlatMap stage whose keys are expected to
// already be unique, so reduce only ever sees singleton groups.
func identityReduceFn() JSFunc {
	return JSFunc{
		Params: []string{"key", "values"},
		Body: []JSNode{
			JSReturn{Value: JSMember{Obj: JSIdent{"values"}, PropExpr: JSLiteral{Value: int64(0)}, Computed: true}},
		},
	}
}
