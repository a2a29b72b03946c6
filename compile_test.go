package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompile_SimplePipeline(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	m := MakeMatch(src, EqSel(Field("age"), int64(18)))

	task, err := Compile(m)

	assert.NoError(t, err)
	_, ok := task.(*PipelineTask)
	assert.True(t, ok)
}

func TestCompile_FoldLeftBareTailGetsDefaultReduce(t *testing.T) {
	head := MakeRead(NewCollection("people"))
	tail := MakeRead(NewCollection("other"))
	fold := &FoldLeftOpNode{Head: head, Tails: []Op{tail}}

	// Finalize appends a default reduce to the bare tail, so it lowers to
	// a map-reduce task and Compile succeeds.
	task, err := Compile(fold)

	assert.NoError(t, err)
	ft, ok := task.(*FoldLeftTask)
	assert.True(t, ok)
	assert.Len(t, ft.Tails, 1)
}

func TestCompile_WithFieldPruningDisabledKeepsUnusedProjectField(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	proj := MakeProject(src, NewDoc(
		[]string{"name", "unused"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("name")}), NodeExpr(Ref{V: Field("unused")})},
	))
	// Built directly: MakeProject would inline this project into proj.
	top := &ProjectOpNode{Src: proj, Shape: NewDoc([]string{"name"}, []ReshapeNode{NodeExpr(Ref{V: Field("name")})})}

	task, err := Compile(top, WithFieldPruning(false))

	assert.NoError(t, err)
	pt, ok := task.(*PipelineTask)
	assert.True(t, ok)
	assert.Len(t, pt.Stages, 2)
}

func TestCompile_UsesCacheOnSecondCall(t *testing.T) {
	c := NewCache(0, 0)
	src := MakeRead(NewCollection("people"))
	m := MakeMatch(src, EqSel(Field("age"), int64(18)))

	first, err := Compile(m, WithCache(c))
	assert.NoError(t, err)

	cached, ok := c.Get(m)
	assert.True(t, ok)
	assert.Equal(t, TaskJSON(first), TaskJSON(cached))

	second, err := Compile(m, WithCache(c))
	assert.NoError(t, err)
	assert.Equal(t, TaskJSON(first), TaskJSON(second))
}
