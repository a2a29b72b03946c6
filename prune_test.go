package wf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeleteUnusedFields_DropsUnreferencedProjectField(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	proj := MakeProject(src, NewDoc(
		[]string{"name", "age"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("name")}), NodeExpr(Ref{V: Field("age")})},
	))
	// Nothing downstream references "age": a Project consuming only "name".
	// Built directly: MakeProject would inline this project into proj.
	top := &ProjectOpNode{Src: proj, Shape: NewDoc(
		[]string{"name"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("name")})},
	)}

	pruned := DeleteUnusedFields(top)

	outer, ok := pruned.(*ProjectOpNode)
	assert.True(t, ok)
	inner, ok := outer.Src.(*ProjectOpNode)
	assert.True(t, ok)
	assert.Equal(t, []string{"name"}, inner.Shape.Names())
}

func TestDeleteUnusedFields_KeepsFieldUsedByGroupKey(t *testing.T) {
	src := MakeRead(NewCollection("orders"))
	proj := MakeProject(src, NewDoc(
		[]string{"region", "total"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("region")}), NodeExpr(Ref{V: Field("total")})},
	))
	grp := MakeGroup(proj, NodeExpr(Ref{V: Field("region")}), []string{"sum"}, map[string]Expr{
		"sum": Sum(Ref{V: Field("total")}),
	})

	pruned := DeleteUnusedFields(grp)

	g, ok := pruned.(*GroupOpNode)
	assert.True(t, ok)
	inner, ok := g.Src.(*ProjectOpNode)
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"region", "total"}, inner.Shape.Names())
}

func TestDeleteUnusedFields_StopsAtUDFBoundary(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	proj := MakeProject(src, NewDoc(
		[]string{"name", "unused"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("name")}), NodeExpr(Ref{V: Field("unused")})},
	))
	mapped := MakeMap(proj, JSFunc{Params: []string{"key", "value"}, Body: []JSNode{
		JSReturn{Value: JSArray{Elems: []JSNode{JSIdent{"key"}, JSIdent{"value"}}}},
	}})

	pruned := DeleteUnusedFields(mapped)

	m, ok := pruned.(*MapOpNode)
	assert.True(t, ok)
	inner, ok := m.Src.(*ProjectOpNode)
	assert.True(t, ok)
	// A Map's body is opaque: prune must not drop "unused" just because
	// nothing downstream of the Map names it explicitly.
	assert.ElementsMatch(t, []string{"name", "unused"}, inner.Shape.Names())
}

func TestDeleteUnusedFields_UnwindPathSurvives(t *testing.T) {
	src := MakeRead(NewCollection("people"))
	proj := MakeProject(src, NewDoc(
		[]string{"tags", "dropped"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("tags")}), NodeExpr(Ref{V: Field("dropped")})},
	))
	unwound := MakeUnwind(proj, Field("tags"), "", false)
	top := MakeProject(unwound, NewDoc(
		[]string{"tags"},
		[]ReshapeNode{NodeExpr(Ref{V: Field("tags")})},
	))

	pruned := DeleteUnusedFields(top)

	outer, ok := pruned.(*ProjectOpNode)
	assert.True(t, ok)
	u, ok := outer.Src.(*UnwindOpNode)
	assert.True(t, ok)
	inner, ok := u.Src.(*ProjectOpNode)
	assert.True(t, ok)
	assert.Contains(t, inner.Shape.Names(), "tags")
}
