package wf

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Stage is a pure description of one native aggregation pipeline stage.
// Concrete stages are built as typed value objects instead of bare bson.D
// (as pipeline.go does) so that rewriteRefs can reach into embedded
// expressions, selectors and reshapes; ToBSON renders the final bson.D
// only once, at crush time.
type Stage interface {
	ToBSON() bson.D
	rewriteRefs(f RefFunc) Stage
}

// MatchStage is { $match: selector }.
type MatchStage struct{ Sel Selector }

func (s MatchStage) ToBSON() bson.D { return bson.D{{Key: "$match", Value: s.Sel.ToBSON()}} }
func (s MatchStage) rewriteRefs(f RefFunc) Stage {
	return MatchStage{Sel: s.Sel.RewriteRefs(f)}
}

// SortField is one (field, direction) entry of a Sort stage's non-empty
// ordered list (spec.md node table).
type SortField struct {
	Field     DocVar
	Ascending bool
}

// SortStage is { $sort: { field: 1 | -1, ... } }.
type SortStage struct{ Fields []SortField }

func (s SortStage) ToBSON() bson.D {
	d := make(bson.D, len(s.Fields))
	for i, f := range s.Fields {
		dir := int32(1)
		if !f.Ascending {
			dir = -1
		}
		d[i] = bson.E{Key: fieldKey(f.Field), Value: dir}
	}
	return bson.D{{Key: "$sort", Value: d}}
}
func (s SortStage) rewriteRefs(f RefFunc) Stage {
	out := make([]SortField, len(s.Fields))
	for i, sf := range s.Fields {
		out[i] = SortField{Field: rebaseField(sf.Field, f), Ascending: sf.Ascending}
	}
	return SortStage{Fields: out}
}

// LimitStage is { $limit: n }.
type LimitStage struct{ N int64 }

func (s LimitStage) ToBSON() bson.D             { return bson.D{{Key: "$limit", Value: s.N}} }
func (s LimitStage) rewriteRefs(RefFunc) Stage  { return s }

// SkipStage is { $skip: n }.
type SkipStage struct{ N int64 }

func (s SkipStage) ToBSON() bson.D            { return bson.D{{Key: "$skip", Value: s.N}} }
func (s SkipStage) rewriteRefs(RefFunc) Stage { return s }

// ProjectStage is { $project: reshape }.
type ProjectStage struct{ Shape Reshape }

func (s ProjectStage) ToBSON() bson.D {
	return bson.D{{Key: "$project", Value: reshapeToBSON(s.Shape)}}
}
func (s ProjectStage) rewriteRefs(f RefFunc) Stage {
	return ProjectStage{Shape: s.Shape.RewriteRefs(f)}
}

// RedactStage is { $redact: expression }.
type RedactStage struct{ E Expr }

func (s RedactStage) ToBSON() bson.D { return bson.D{{Key: "$redact", Value: s.E.ToBSON()}} }
func (s RedactStage) rewriteRefs(f RefFunc) Stage {
	return RedactStage{E: RewriteRefs(s.E, f)}
}

// UnwindStage is { $unwind: { path, includeArrayIndex?, preserveNullAndEmptyArrays? } }.
type UnwindStage struct {
	Path                       DocVar
	IncludeArrayIndex          string
	PreserveNullAndEmptyArrays bool
}

func (s UnwindStage) ToBSON() bson.D {
	d := bson.D{{Key: "path", Value: s.Path.String()}}
	if s.IncludeArrayIndex != "" {
		d = append(d, bson.E{Key: "includeArrayIndex", Value: s.IncludeArrayIndex})
	}
	if s.PreserveNullAndEmptyArrays {
		d = append(d, bson.E{Key: "preserveNullAndEmptyArrays", Value: true})
	}
	return bson.D{{Key: "$unwind", Value: d}}
}
func (s UnwindStage) rewriteRefs(f RefFunc) Stage {
	s.Path = rebaseField(s.Path, f)
	return s
}

// GroupStage is { $group: { _id: by, field: groupOp, ... } }. Grouped maps
// a result field name to the GroupOp expression that computes it; By is
// the grouping key, either a single expression or a Reshape for composite
// keys. By invariant 2, every Grouped value must satisfy IsGroupOp().
type GroupStage struct {
	By      ReshapeNode // Expr (wrapped via NodeExpr) or Reshape
	Names   []string    // declared order of Grouped's keys
	Grouped map[string]Expr
}

func (s GroupStage) ToBSON() bson.D {
	id := bson.D{{Key: "_id", Value: nodeToBSON(s.By)}}
	for _, name := range s.Names {
		id = append(id, bson.E{Key: name, Value: s.Grouped[name].ToBSON()})
	}
	return bson.D{{Key: "$group", Value: id}}
}
func (s GroupStage) rewriteRefs(f RefFunc) Stage {
	out := GroupStage{
		By:      s.By.mapUp(func(e Expr) Expr { return RewriteRefs(e, f) }),
		Names:   append([]string(nil), s.Names...),
		Grouped: make(map[string]Expr, len(s.Grouped)),
	}
	for name, e := range s.Grouped {
		rewritten := RewriteRefs(e, f)
		if !rewritten.IsGroupOp() {
			panic(ErrTypeChangingRewrite.New(name))
		}
		out.Grouped[name] = rewritten
	}
	return out
}

// GeoNearStage is { $geoNear: {...} } (spec.md node table's GeoNear fields).
type GeoNearStage struct {
	Near           bson.D // GeoJSON point or legacy coordinate pair
	DistanceField  string
	Limit          int64 // 0 means unset
	MaxDistance    float64
	Query          Selector
	Spherical      bool
	DistanceMultiplier float64
	IncludeLocs    string
	UniqueDocs     bool
}

func (s GeoNearStage) ToBSON() bson.D {
	d := bson.D{
		{Key: "near", Value: s.Near},
		{Key: "distanceField", Value: s.DistanceField},
	}
	if s.Limit > 0 {
		d = append(d, bson.E{Key: "limit", Value: s.Limit})
	}
	if s.MaxDistance > 0 {
		d = append(d, bson.E{Key: "maxDistance", Value: s.MaxDistance})
	}
	if !s.Query.IsEmpty() {
		d = append(d, bson.E{Key: "query", Value: s.Query.ToBSON()})
	}
	d = append(d, bson.E{Key: "spherical", Value: s.Spherical})
	if s.DistanceMultiplier != 0 {
		d = append(d, bson.E{Key: "distanceMultiplier", Value: s.DistanceMultiplier})
	}
	if s.IncludeLocs != "" {
		d = append(d, bson.E{Key: "includeLocs", Value: s.IncludeLocs})
	}
	if s.UniqueDocs {
		d = append(d, bson.E{Key: "uniqueDocs", Value: true})
	}
	return bson.D{{Key: "$geoNear", Value: d}}
}
func (s GeoNearStage) rewriteRefs(f RefFunc) Stage {
	s.Query = s.Query.RewriteRefs(f)
	return s
}

// reshapeToBSON renders a Reshape as the bson.D/bson.A a $project or
// $addFields stage expects, recursing into nested reshapes.
func reshapeToBSON(r Reshape) interface{} {
	if r.IsArr {
		arr := make(bson.A, len(r.elems))
		for i, e := range r.elems {
			arr[i] = nodeToBSON(e)
		}
		return arr
	}
	d := make(bson.D, len(r.fields))
	for i, fl := range r.fields {
		d[i] = bson.E{Key: fl.Name, Value: nodeToBSON(fl.Node)}
	}
	return d
}

func nodeToBSON(n ReshapeNode) interface{} {
	if e, ok := AsExpr(n); ok {
		return e.ToBSON()
	}
	return reshapeToBSON(n.(Reshape))
}
