package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalize_WrapsFoldLeftHeadUnderValue(t *testing.T) {
	head := MakeRead(NewCollection("people"))
	tail := MakeReduce(MakeRead(NewCollection("other")), defaultMergeReduceFn())
	fold := MakeFoldLeft(head, tail)

	got := Finalize(fold)

	f, ok := got.(*FoldLeftOpNode)
	assert.True(t, ok)
	wrapped, ok := f.Head.(*ProjectOpNode)
	assert.True(t, ok)
	assert.Equal(t, []string{"value"}, wrapped.Shape.Names())
	node, _ := wrapped.Shape.Get("value")
	e, _ := AsExpr(node)
	ref, ok := e.(Ref)
	assert.True(t, ok)
	assert.Equal(t, ROOT, ref.V)
}

func TestFinalize_LeavesAlreadyWrappedHeadAlone(t *testing.T) {
	head := MakeProject(MakeRead(NewCollection("people")),
		NewDoc([]string{"value"}, []ReshapeNode{NodeExpr(Ref{V: ROOT})}))
	tail := MakeReduce(MakeRead(NewCollection("other")), defaultMergeReduceFn())
	fold := MakeFoldLeft(head, tail)

	got := Finalize(fold).(*FoldLeftOpNode)

	// Finalize must not add a second wrapping Project on top of one
	// that already satisfies the {value: ROOT} shape.
	_, doubleWrapped := got.Head.(*ProjectOpNode).Src.(*ProjectOpNode)
	assert.False(t, doubleWrapped)
}

func TestFinalize_AppendsDefaultReduceToBareTail(t *testing.T) {
	head := MakeRead(NewCollection("people"))
	tail := MakeRead(NewCollection("other")) // not a Reduce
	fold := MakeFoldLeft(head, tail)

	got := Finalize(fold).(*FoldLeftOpNode)

	_, ok := got.Tails[0].(*ReduceOpNode)
	assert.True(t, ok)
}

func TestFinalize_FusesMapOverProject(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	proj := MakeProject(src, NewDoc([]string{"n"}, []ReshapeNode{NodeExpr(Ref{V: Field("name")})}))
	mapped := MakeMap(proj, JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
	}})

	got := Finalize(mapped)

	m, ok := got.(*MapOpNode)
	assert.True(t, ok)
	// The Project has been fused away: Map's source is now the Read.
	_, isRead := m.Src.(*ReadOpNode)
	assert.True(t, isRead)
}

func TestFinalize_FusesFlatMapOverUnwindIntoFlatMap(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	unwound := MakeUnwind(src, Field("tags"), "", false)
	flat := MakeFlatMap(unwound, JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}}}},
	}})

	got := Finalize(flat)

	fm, ok := got.(*FlatMapOpNode)
	assert.True(t, ok)
	_, isRead := fm.Src.(*ReadOpNode)
	assert.True(t, isRead)
}
