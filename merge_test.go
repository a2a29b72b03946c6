package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_IdenticalOperandsShareSource(t *testing.T) {
	a := MakeMatch(MakeRead(NewCollection("people")), EqSel(Field("age"), int64(18)))
	b := MakeMatch(MakeRead(NewCollection("people")), EqSel(Field("age"), int64(18)))

	baseA, baseB, merged := Merge(a, b)

	assert.Equal(t, ROOT, baseA)
	assert.Equal(t, ROOT, baseB)
	assert.True(t, opEqual(a, merged))
}

func TestMerge_PureVsPureNamespaces(t *testing.T) {
	a := MakePure(int64(1))
	b := MakePure(int64(2))

	baseA, baseB, merged := Merge(a, b)

	assert.Equal(t, Field("lEft"), baseA)
	assert.Equal(t, Field("rIght"), baseB)
	p, ok := merged.(*PureOpNode)
	assert.True(t, ok)
	assert.NotNil(t, p.Value)
}

func TestMerge_SharedSourceWithDivergingProject(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	proj := MakeProject(src, NewDoc([]string{"n"}, []ReshapeNode{NodeExpr(Ref{V: Field("name")})}))

	baseProj, baseSrc, merged := Merge(proj, src)

	assert.Equal(t, Field("lEft"), baseProj)
	assert.Equal(t, Field("rIght"), baseSrc)
	_, isProj := merged.(*ProjectOpNode)
	assert.True(t, isProj)
}

func TestMerge_TwoGroupsWithEqualByCombine(t *testing.T) {
	src := MakeRead(NewCollection("orders"))
	by := NodeExpr(Ref{V: Field("region")})
	a := MakeGroup(src, by, []string{"total"}, map[string]Expr{"total": Sum(Ref{V: Field("amount")})})
	b := MakeGroup(src, by, []string{"count"}, map[string]Expr{"count": Sum(Lit{Value: int64(1)})})

	baseA, baseB, merged := Merge(a, b)

	assert.Equal(t, Field("lEft"), baseA)
	assert.Equal(t, Field("rIght"), baseB)
	proj, ok := merged.(*ProjectOpNode)
	assert.True(t, ok)
	_, isGroup := proj.Src.(*GroupOpNode)
	assert.True(t, isGroup)
}

func TestMerge_GroupVsBareSource(t *testing.T) {
	coll := NewCollection("orders")
	src := MakeRead(coll)
	by := NodeExpr(Ref{V: Field("region")})
	group := MakeGroup(src, by, []string{"total"}, map[string]Expr{"total": Sum(Ref{V: Field("amount")})})

	baseGroup, baseSrc, merged := Merge(group, MakeRead(coll))

	// A bare source still needs the push+unwind materialization (case 10):
	// its rows aren't sitting at ROOT of the group's output.
	assert.Equal(t, ROOT, baseGroup)
	assert.Equal(t, Field("_p0"), baseSrc)
	unwound, ok := merged.(*UnwindOpNode)
	assert.True(t, ok)
	assert.Equal(t, Field("_p0"), unwound.Path)
	_, isGroup := unwound.Src.(*GroupOpNode)
	assert.True(t, isGroup)
}

func TestMerge_ShapePreservingVsPipeline(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	matched := MakeMatch(src, EqSel(Field("age"), int64(18)))
	projected := MakeProject(src, NewDoc([]string{"n"}, []ReshapeNode{NodeExpr(Ref{V: Field("name")})}))

	baseA, baseB, merged := Merge(matched, projected)

	assert.Equal(t, ROOT, baseA)
	assert.Equal(t, ROOT, baseB)
	proj, ok := merged.(*ProjectOpNode)
	assert.True(t, ok)
	_, isMatch := proj.Src.(*MatchOpNode)
	assert.True(t, isMatch)
}

func TestMerge_UnwindVsGroupMaterializesPipelineSide(t *testing.T) {
	src := MakeRead(NewCollection("orders"))
	unwound := MakeUnwind(src, Field("tags"), "", false)
	grouped := MakeGroup(src, NodeExpr(Ref{V: Field("region")}), []string{"total"},
		map[string]Expr{"total": Sum(Ref{V: Field("amount")})})

	_, _, merged := Merge(unwound, grouped)

	outer, ok := merged.(*UnwindOpNode)
	assert.True(t, ok)
	// aUnwind's own path gets rebased under the synthetic push field the
	// group materializes its merged source through.
	assert.Equal(t, Field("_p0", "tags"), outer.Path)
	inner, ok := outer.Src.(*UnwindOpNode)
	assert.True(t, ok)
	_, isGroup := inner.Src.(*GroupOpNode)
	assert.True(t, isGroup)
}

func TestMerge_RedactVsRedactSequences(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	a := MakeRedact(src, Cond(Ref{V: Field("public")}, Lit{Value: "KEEP"}, Lit{Value: "PRUNE"}))
	b := MakeRedact(src, Cond(Ref{V: Field("approved")}, Lit{Value: "KEEP"}, Lit{Value: "PRUNE"}))

	baseA, baseB, merged := Merge(a, b)

	assert.Equal(t, ROOT, baseA)
	assert.Equal(t, ROOT, baseB)
	outer, ok := merged.(*RedactOpNode)
	assert.True(t, ok)
	inner, ok := outer.Src.(*RedactOpNode)
	assert.True(t, ok)
	_, isRead := inner.Src.(*ReadOpNode)
	assert.True(t, isRead)
}

func TestMerge_UnwindVsUnwindDifferentPathsSequence(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	a := MakeUnwind(src, Field("tags"), "", false)
	b := MakeUnwind(src, Field("categories"), "", false)

	baseA, baseB, merged := Merge(a, b)

	assert.Equal(t, ROOT, baseA)
	assert.Equal(t, ROOT, baseB)
	outer, ok := merged.(*UnwindOpNode)
	assert.True(t, ok)
	assert.Equal(t, Field("categories"), outer.Path)
	inner, ok := outer.Src.(*UnwindOpNode)
	assert.True(t, ok)
	assert.Equal(t, Field("tags"), inner.Path)
}

func TestMerge_UDFVsProjectLabelsBothSides(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	mapped := MakeMap(src, JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
	}})
	projected := MakeProject(src, NewDoc([]string{"n"}, []ReshapeNode{NodeExpr(Ref{V: Field("name")})}))

	baseA, baseB, merged := Merge(mapped, projected)

	assert.Equal(t, Field("lEft"), baseA)
	assert.Equal(t, Field("rIght"), baseB)
	proj, ok := merged.(*ProjectOpNode)
	assert.True(t, ok)
	_, isFold := proj.Src.(*FoldLeftOpNode)
	assert.True(t, isFold)
}

func TestMerge_DisjointBranchesFallBackToFoldLeft(t *testing.T) {
	a := MakeMap(MakeRead(NewCollection("people")), JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
	}})
	b := MakeRead(NewCollection("orders"))

	baseA, baseB, merged := Merge(a, b)

	assert.Equal(t, Field("lEft"), baseA)
	assert.Equal(t, Field("rIght"), baseB)
	_, ok := merged.(*FoldLeftOpNode)
	assert.True(t, ok)
}
