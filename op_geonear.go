package wf

import "go.mongodb.org/mongo-driver/v2/bson"

// GeoNearParams carries a GeoNear op's essential fields (spec.md node
// table): the query point, the distance field to populate, and the usual
// $geoNear tuning knobs.
type GeoNearParams struct {
	Near               interface{} // a GeoJSON point document, or a legacy [lng, lat] pair
	DistanceField      string
	Limit              int64
	MaxDistance        float64
	Query              Selector
	Spherical          bool
	DistanceMultiplier float64
	IncludeLocs        string
	UniqueDocs         bool
}

// GeoNearOpNode is a Pipeline op running a $geoNear proximity search.
// $geoNear must be the first stage of a pipeline, so MakeGeoNear always
// hoists it to sit directly on the original source (spec.md §4.1).
type GeoNearOpNode struct {
	Src    Op
	Params GeoNearParams
}

func (*GeoNearOpNode) isOp() {}

func (n *GeoNearOpNode) Source() Op            { return n.Src }
func (n *GeoNearOpNode) Reparent(newSrc Op) Op { return &GeoNearOpNode{Src: newSrc, Params: n.Params} }

func (n *GeoNearOpNode) Stage(base DocVar) Stage {
	s := n.stageOf()
	return s.rewriteRefs(baseRebase(base))
}

func (n *GeoNearOpNode) stageOf() GeoNearStage {
	return GeoNearStage{
		DistanceField:      n.Params.DistanceField,
		Limit:              n.Params.Limit,
		MaxDistance:        n.Params.MaxDistance,
		Query:              n.Params.Query,
		Spherical:          n.Params.Spherical,
		DistanceMultiplier: n.Params.DistanceMultiplier,
		IncludeLocs:        n.Params.IncludeLocs,
		UniqueDocs:         n.Params.UniqueDocs,
		Near:               geoNearBSON(n.Params.Near),
	}
}

func (n *GeoNearOpNode) rewriteRefs(f RefFunc) Op {
	p := n.Params
	p.Query = p.Query.RewriteRefs(f)
	return &GeoNearOpNode{Src: n.Src, Params: p}
}

func (n *GeoNearOpNode) Render() *DebugNode {
	return single("GeoNear", map[string]string{"distanceField": n.Params.DistanceField}, n.Src)
}

// geoNearBSON normalizes a GeoNear query point into the bson.D GeoNearStage
// expects, accepting either a pre-built GeoJSON document or a legacy
// [longitude, latitude] pair (mirroring filter.go's Point helper).
func geoNearBSON(v interface{}) bson.D {
	switch p := v.(type) {
	case bson.D:
		return p
	case [2]float64:
		return bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: bson.A{p[0], p[1]}},
		}
	default:
		return bson.D{}
	}
}

// MakeGeoNear is GeoNear's smart constructor. Two rules (spec.md §4.1,
// §9 open question):
//
//   - GeoNear over any Pipeline: hoist GeoNear down to sit directly on
//     the original pipeline's source, re-stacking every intermediate
//     stage on top — $geoNear is only legal as a pipeline's first stage.
//   - GeoNear over GeoNear: rejected outright (ErrTwoGeoNearInChain)
//     rather than silently keeping one, since stacking two proximity
//     searches has no settled semantics.
func MakeGeoNear(src Op, params GeoNearParams) Op {
	if _, ok := src.(*GeoNearOpNode); ok {
		panic(ErrTwoGeoNearInChain.New())
	}
	if wp, ok := src.(WPipelineOp); ok {
		inner := MakeGeoNear(wp.Source(), params)
		return wp.Reparent(inner)
	}
	return &GeoNearOpNode{Src: src, Params: params}
}
