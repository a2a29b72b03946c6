package wf

import "go.mongodb.org/mongo-driver/v2/bson"

// Task is the sum type for the lowered execution IR: the output of
// Compile, consumed by a runtime this package never talks to directly
// (spec.md §6). Every Task can render itself as a bson.D for debugging,
// logging, or handing to planio for JSON encoding.
type Task interface {
	isTask()
	ToDoc() bson.D
}

// TaskJSON renders a Task as pretty-printed JSON.
func TaskJSON(t Task) string { return toJSON(t.ToDoc()) }

// TaskCompactJSON renders a Task as compact JSON.
func TaskCompactJSON(t Task) string { return toCompactJSON(t.ToDoc()) }

// PureTask is a leaf task producing a constant value.
type PureTask struct{ Value interface{} }

func (PureTask) isTask() {}
func (t PureTask) ToDoc() bson.D { return bson.D{{Key: "pure", Value: t.Value}} }

// ReadTask is a leaf task reading an entire collection.
type ReadTask struct{ Coll Collection }

func (ReadTask) isTask() {}
func (t ReadTask) ToDoc() bson.D {
	return bson.D{{Key: "read", Value: t.Coll.Name}}
}

// PipelineTask runs a native aggregation pipeline over Src.
type PipelineTask struct {
	Src    Task
	Stages []Stage
}

func (*PipelineTask) isTask() {}
func (t *PipelineTask) ToDoc() bson.D {
	stages := make(bson.A, len(t.Stages))
	for i, s := range t.Stages {
		stages[i] = s.ToBSON()
	}
	return bson.D{
		{Key: "pipeline", Value: bson.D{
			{Key: "source", Value: t.Src.ToDoc()},
			{Key: "stages", Value: stages},
		}},
	}
}

// MapReduceTask runs a map/reduce job over Src, with an optional
// finalizer and an optional pre-selection/sort/limit absorbed from a
// compatible pipeline prefix (spec.md §4.6).
type MapReduceTask struct {
	Src       Task
	Map       JSFunc
	Reduce    JSFunc
	Finalize  *JSFunc
	Selection Selector
	InputSort []SortField
	InputLimit int64 // 0 means unset
	OutAction string // "" (inline), or a runtime-defined out-action label
}

func (*MapReduceTask) isTask() {}
func (t *MapReduceTask) ToDoc() bson.D {
	d := bson.D{
		{Key: "source", Value: t.Src.ToDoc()},
		{Key: "map", Value: Render(t.Map)},
		{Key: "reduce", Value: Render(t.Reduce)},
	}
	if t.Finalize != nil {
		d = append(d, bson.E{Key: "finalize", Value: Render(*t.Finalize)})
	}
	if !t.Selection.IsEmpty() {
		d = append(d, bson.E{Key: "query", Value: t.Selection.ToBSON()})
	}
	if len(t.InputSort) > 0 {
		s := SortStage{Fields: t.InputSort}
		d = append(d, bson.E{Key: "sort", Value: s.ToBSON()[0].Value})
	}
	if t.InputLimit > 0 {
		d = append(d, bson.E{Key: "limit", Value: t.InputLimit})
	}
	if t.OutAction != "" {
		d = append(d, bson.E{Key: "out", Value: t.OutAction})
	}
	return bson.D{{Key: "mapReduce", Value: d}}
}

// FoldLeftTask folds Tails, each a map-reduce reduction step, onto Head.
type FoldLeftTask struct {
	Head  Task
	Tails []*MapReduceTask
}

func (*FoldLeftTask) isTask() {}
func (t *FoldLeftTask) ToDoc() bson.D {
	tails := make(bson.A, len(t.Tails))
	for i, tail := range t.Tails {
		tails[i] = tail.ToDoc()
	}
	return bson.D{{Key: "foldLeft", Value: bson.D{
		{Key: "head", Value: t.Head.ToDoc()},
		{Key: "tails", Value: tails},
	}}}
}

// JoinTask wraps a set of sub-tasks the runtime joins together; ordering
// and cardinality semantics are the runtime's concern (spec.md §9).
type JoinTask struct{ Srcs []Task }

func (*JoinTask) isTask() {}
func (t *JoinTask) ToDoc() bson.D {
	srcs := make(bson.A, len(t.Srcs))
	for i, s := range t.Srcs {
		srcs[i] = s.ToDoc()
	}
	return bson.D{{Key: "join", Value: srcs}}
}
