package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeMatch_CoalescesOverMatch(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	m := MakeMatch(MakeMatch(src, EqSel(Field("age"), int64(18))), EqSel(Field("name"), "joe"))

	got, ok := m.(*MatchOpNode)
	assert.True(t, ok)
	_, isRead := got.Src.(*ReadOpNode)
	assert.True(t, isRead)
}

func TestMakeMatch_SwapsAheadOfSort(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	sorted := MakeSort(src, []SortField{{Field: Field("name"), Ascending: true}})
	m := MakeMatch(sorted, EqSel(Field("age"), int64(18)))

	sortNode, ok := m.(*SortOpNode)
	assert.True(t, ok)
	_, isMatch := sortNode.Src.(*MatchOpNode)
	assert.True(t, isMatch)
}

func TestMakeLimit_TakesMinimumOverLimit(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	l := MakeLimit(MakeLimit(src, 20), 5)

	got, ok := l.(*LimitOpNode)
	assert.True(t, ok)
	assert.Equal(t, int64(5), got.N)
}

func TestMakeLimit_MovesAheadOfSkip(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	l := MakeLimit(MakeSkip(src, 10), 5)

	skipNode, ok := l.(*SkipOpNode)
	assert.True(t, ok)
	assert.Equal(t, int64(10), skipNode.N)
	limitNode, ok := skipNode.Src.(*LimitOpNode)
	assert.True(t, ok)
	assert.Equal(t, int64(15), limitNode.N)
}

func TestMakeSkip_SumsOverSkip(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	s := MakeSkip(MakeSkip(src, 5), 7)

	got, ok := s.(*SkipOpNode)
	assert.True(t, ok)
	assert.Equal(t, int64(12), got.N)
}

func TestMakeProject_InlinesOverProject(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	inner := MakeProject(src, NewDoc([]string{"n"}, []ReshapeNode{NodeExpr(Ref{V: Field("name")})}))
	outer := MakeProject(inner, NewDoc([]string{"upper"}, []ReshapeNode{NodeExpr(Ref{V: Field("n")})}))

	got, ok := outer.(*ProjectOpNode)
	assert.True(t, ok)
	_, isRead := got.Src.(*ReadOpNode)
	assert.True(t, isRead)
	node, _ := got.Shape.Get("upper")
	e, _ := AsExpr(node)
	ref, ok := e.(Ref)
	assert.True(t, ok)
	assert.Equal(t, Field("name"), ref.V)
}

func TestMakeProject_FusesRenameOnlyProjectOverGroup(t *testing.T) {
	src := MakeRead(NewCollection("orders"))
	grouped := MakeGroup(src, NodeExpr(Ref{V: Field("region")}), []string{"total"},
		map[string]Expr{"total": Sum(Ref{V: Field("amount")})})
	renamed := MakeProject(grouped, NewDoc([]string{"sum"}, []ReshapeNode{NodeExpr(Ref{V: Field("total")})}))

	got, ok := renamed.(*GroupOpNode)
	assert.True(t, ok)
	assert.Equal(t, []string{"sum"}, got.Names)
}

func TestMakeFoldLeft_FlattensFoldLeftOverFoldLeft(t *testing.T) {
	head := MakeRead(NewCollection("a"))
	inner := MakeFoldLeft(head, MakeRead(NewCollection("b")))
	outer := MakeFoldLeft(inner, MakeRead(NewCollection("c")))

	got, ok := outer.(*FoldLeftOpNode)
	assert.True(t, ok)
	assert.Len(t, got.Tails, 2)
	_, isRead := got.Head.(*ReadOpNode)
	assert.True(t, isRead)
}

func TestMakeFoldLeft_PanicsWithNoTails(t *testing.T) {
	assert.Panics(t, func() {
		MakeFoldLeft(MakeRead(NewCollection("a")))
	})
}

func TestMakeGroup_PanicsOnNonAccumulatorExpr(t *testing.T) {
	src := MakeRead(NewCollection("orders"))
	assert.Panics(t, func() {
		MakeGroup(src, NodeExpr(Ref{V: Field("region")}), []string{"bad"},
			map[string]Expr{"bad": Ref{V: Field("amount")}})
	})
}
