package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() *Config { return buildConfig(nil) }

func TestCrush_PlainMatchIsPipelineStage(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	m := MakeMatch(src, EqSel(Field("age"), int64(18)))

	_, task := crush(m, testConfig())

	pt, ok := task.(*PipelineTask)
	assert.True(t, ok)
	assert.Len(t, pt.Stages, 1)
	_, isMatch := pt.Stages[0].(MatchStage)
	assert.True(t, isMatch)
	_, isRead := pt.Src.(ReadTask)
	assert.True(t, isRead)
}

func TestCrush_JSMatchFallsBackToMapReduce(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	sel := sel(whereClause{JS: "this.age >= 18"})
	m := &MatchOpNode{Src: src, Sel: sel}

	base, task := crush(m, testConfig())

	mr, ok := task.(*MapReduceTask)
	assert.True(t, ok)
	assert.Equal(t, Field("value"), base)
	assert.False(t, mr.Selection.IsEmpty())
}

func TestCrush_MapAttachesOntoOpenMapReduceAsFinalize(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	jsMatch := &MatchOpNode{Src: src, Sel: sel(whereClause{JS: "true"})}
	fn := JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
	}}
	mapped := &MapOpNode{Src: jsMatch, Fn: fn}

	_, task := crush(mapped, testConfig())

	mr, ok := task.(*MapReduceTask)
	assert.True(t, ok)
	assert.NotNil(t, mr.Finalize)
}

func TestCrush_ReduceAttachesOntoOpenMapReduce(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	jsMatch := &MatchOpNode{Src: src, Sel: sel(whereClause{JS: "true"})}
	reduceFn := defaultMergeReduceFn()
	reduced := &ReduceOpNode{Src: jsMatch, Fn: reduceFn}

	_, task := crush(reduced, testConfig())

	mr, ok := task.(*MapReduceTask)
	assert.True(t, ok)
	assert.Equal(t, Render(reduceFn), Render(mr.Reduce))
}

func TestCrush_FlatMapOverPlainReadOpensFreshMapReduce(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	fn := JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}}}},
	}}
	flat := &FlatMapOpNode{Src: src, Fn: fn}

	base, task := crush(flat, testConfig())

	mr, ok := task.(*MapReduceTask)
	assert.True(t, ok)
	assert.Equal(t, Field("value"), base)
	_, isRead := mr.Src.(ReadTask)
	assert.True(t, isRead)
}

func TestCrush_FlatMapAbsorbsMatchSortLimitPrefix(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	matched := &MatchOpNode{Src: src, Sel: EqSel(Field("age"), int64(18))}
	sorted := &SortOpNode{Src: matched, Fields: []SortField{{Field: Field("name"), Ascending: true}}}
	limited := &LimitOpNode{Src: sorted, N: 10}
	fn := JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}}}},
	}}
	flat := &FlatMapOpNode{Src: limited, Fn: fn}

	_, task := crush(flat, testConfig())

	mr, ok := task.(*MapReduceTask)
	assert.True(t, ok)
	assert.False(t, mr.Selection.IsEmpty())
	assert.Len(t, mr.InputSort, 1)
	assert.Equal(t, int64(10), mr.InputLimit)
	_, isRead := mr.Src.(ReadTask)
	assert.True(t, isRead)
}

func TestCrush_FoldLeftRequiresReduceTails(t *testing.T) {
	head := MakeProject(MakeRead(NewCollection("people")),
		NewDoc([]string{"value"}, []ReshapeNode{NodeExpr(Ref{V: ROOT})}))
	tail := MakeRead(NewCollection("other")) // not reducible
	fold := &FoldLeftOpNode{Head: head, Tails: []Op{tail}}

	assert.Panics(t, func() {
		crush(fold, testConfig())
	})
}

func TestCrush_FoldLeftLowersToFoldLeftTask(t *testing.T) {
	head := MakeProject(MakeRead(NewCollection("people")),
		NewDoc([]string{"value"}, []ReshapeNode{NodeExpr(Ref{V: ROOT})}))
	jsMatch := &MatchOpNode{Src: MakeRead(NewCollection("other")), Sel: sel(whereClause{JS: "true"})}
	tail := &ReduceOpNode{Src: jsMatch, Fn: defaultMergeReduceFn()}
	fold := &FoldLeftOpNode{Head: head, Tails: []Op{tail}}

	_, task := crush(fold, testConfig())

	ft, ok := task.(*FoldLeftTask)
	assert.True(t, ok)
	assert.Len(t, ft.Tails, 1)
	assert.Equal(t, foldTailOutAction, ft.Tails[0].OutAction)
}

func TestCrush_JoinLowersEachSourceIndependently(t *testing.T) {
	j := &JoinOpNode{Srcs: []Op{
		MakeRead(NewCollection("a")),
		MakeRead(NewCollection("b")),
	}}

	base, task := crush(j, testConfig())

	jt, ok := task.(*JoinTask)
	assert.True(t, ok)
	assert.Equal(t, ROOT, base)
	assert.Len(t, jt.Srcs, 2)
}

func TestCrush_ChainedPipelineOpsExtendSamePipelineTask(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	matched := &MatchOpNode{Src: src, Sel: EqSel(Field("age"), int64(18))}
	sorted := &SortOpNode{Src: matched, Fields: []SortField{{Field: Field("name"), Ascending: true}}}

	_, task := crush(sorted, testConfig())

	pt, ok := task.(*PipelineTask)
	assert.True(t, ok)
	assert.Len(t, pt.Stages, 2)
}
