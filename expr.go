package wf

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Expr is the sum type for document expressions: literals, DocVar
// references, arithmetic/comparison/boolean/conditional operators, and the
// GroupOp sub-family valid only inside a Group stage. See spec.md §3.
//
// The concrete implementations are Lit, Ref, OpExpr and GroupOp. All of them
// support MapUp, the uniform bottom-up rewrite every rewriteRefs call is
// built on.
type Expr interface {
	// ToBSON renders the expression as the bson.D/bson.A/literal value the
	// mongo aggregation runtime expects.
	ToBSON() interface{}

	// MapUp rewrites every sub-expression bottom-up: children are
	// transformed first, the node is rebuilt from the transformed
	// children, and f is applied to the rebuilt node last.
	MapUp(f func(Expr) Expr) Expr

	// IsGroupOp reports whether this expression is only valid inside a
	// Group stage's accumulator map (spec.md invariant 2).
	IsGroupOp() bool
}

// Lit wraps a literal BSON scalar, document, or array value.
type Lit struct{ Value interface{} }

func (l Lit) ToBSON() interface{}              { return l.Value }
func (l Lit) MapUp(f func(Expr) Expr) Expr     { return f(l) }
func (l Lit) IsGroupOp() bool                  { return false }

// Ref is a DocVar reference rendered as "$field.path".
type Ref struct{ V DocVar }

func (r Ref) ToBSON() interface{} {
	if r.V.IsRoot() {
		return "$$ROOT"
	}
	return r.V.String()
}
func (r Ref) MapUp(f func(Expr) Expr) Expr { return f(r) }
func (r Ref) IsGroupOp() bool              { return false }

// argStyle controls how OpExpr renders its Args.
type argStyle uint8

const (
	// styleArray renders {$name: [args...]}, even for a single arg.
	styleArray argStyle = iota
	// styleSingle renders {$name: args[0]} when len(Args) == 1.
	styleSingle
	// styleNamed renders {$name: {Key: Args[i], ...}} using Names.
	styleNamed
)

// OpExpr is a general (non-group) operator expression: arithmetic, comparison,
// boolean, conditional, string, array, set, date, object operators. Name is
// the MongoDB operator including its leading "$" (e.g. "$add", "$cond").
type OpExpr struct {
	Name  string
	Args  []Expr
	Names []string // parallel to Args when style == styleNamed
	style argStyle
}

func (o OpExpr) ToBSON() interface{} {
	switch o.style {
	case styleSingle:
		if len(o.Args) == 1 {
			return bson.D{{Key: o.Name, Value: o.Args[0].ToBSON()}}
		}
		fallthrough
	case styleArray:
		arr := make(bson.A, len(o.Args))
		for i, a := range o.Args {
			arr[i] = a.ToBSON()
		}
		return bson.D{{Key: o.Name, Value: arr}}
	default: // styleNamed
		doc := make(bson.D, 0, len(o.Args))
		for i, a := range o.Args {
			doc = append(doc, bson.E{Key: o.Names[i], Value: a.ToBSON()})
		}
		return bson.D{{Key: o.Name, Value: doc}}
	}
}

func (o OpExpr) MapUp(f func(Expr) Expr) Expr {
	newArgs := make([]Expr, len(o.Args))
	for i, a := range o.Args {
		newArgs[i] = a.MapUp(f)
	}
	return f(OpExpr{Name: o.Name, Args: newArgs, Names: o.Names, style: o.style})
}

func (o OpExpr) IsGroupOp() bool { return false }

// GroupOp is an accumulator expression (sum, avg, push, addToSet, first,
// last, max, min, topN, ...) — the only expression family legal as a
// Group stage's accumulator value (spec.md invariant 2).
type GroupOp struct {
	Name  string
	Args  []Expr
	Names []string
	style argStyle
}

func (g GroupOp) ToBSON() interface{} {
	o := OpExpr{Name: g.Name, Args: g.Args, Names: g.Names, style: g.style}
	return o.ToBSON()
}

func (g GroupOp) MapUp(f func(Expr) Expr) Expr {
	newArgs := make([]Expr, len(g.Args))
	for i, a := range g.Args {
		newArgs[i] = a.MapUp(f)
	}
	return f(GroupOp{Name: g.Name, Args: newArgs, Names: g.Names, style: g.style})
}

func (g GroupOp) IsGroupOp() bool { return true }

// RefFunc is a partial function from DocVar to DocVar used by RewriteRefs:
// the bool result reports whether v is in the function's domain.
type RefFunc func(v DocVar) (DocVar, bool)

// RewriteRefs rewrites every Ref leaf in e through f, leaving the rest of
// the expression tree structurally identical. References outside f's
// domain are left untouched (spec.md §4.2, the reference invariant).
func RewriteRefs(e Expr, f RefFunc) Expr {
	return e.MapUp(func(sub Expr) Expr {
		if r, ok := sub.(Ref); ok {
			if nv, in := f(r.V); in {
				return Ref{V: nv}
			}
		}
		return sub
	})
}

// --- Arithmetic operators ---

func Add(args ...Expr) Expr      { return OpExpr{Name: "$add", Args: args, style: styleArray} }
func Subtract(a, b Expr) Expr    { return OpExpr{Name: "$subtract", Args: []Expr{a, b}, style: styleArray} }
func Multiply(args ...Expr) Expr { return OpExpr{Name: "$multiply", Args: args, style: styleArray} }
func Divide(a, b Expr) Expr      { return OpExpr{Name: "$divide", Args: []Expr{a, b}, style: styleArray} }
func Mod(a, b Expr) Expr         { return OpExpr{Name: "$mod", Args: []Expr{a, b}, style: styleArray} }
func Abs(a Expr) Expr            { return OpExpr{Name: "$abs", Args: []Expr{a}, style: styleSingle} }
func Ceil(a Expr) Expr           { return OpExpr{Name: "$ceil", Args: []Expr{a}, style: styleSingle} }
func Floor(a Expr) Expr          { return OpExpr{Name: "$floor", Args: []Expr{a}, style: styleSingle} }
func Sqrt(a Expr) Expr           { return OpExpr{Name: "$sqrt", Args: []Expr{a}, style: styleSingle} }

// --- Comparison operators ---

func Cmp(a, b Expr) Expr { return OpExpr{Name: "$cmp", Args: []Expr{a, b}, style: styleArray} }
func EqExpr(a, b Expr) Expr { return OpExpr{Name: "$eq", Args: []Expr{a, b}, style: styleArray} }
func NeExpr(a, b Expr) Expr { return OpExpr{Name: "$ne", Args: []Expr{a, b}, style: styleArray} }
func GtExpr(a, b Expr) Expr { return OpExpr{Name: "$gt", Args: []Expr{a, b}, style: styleArray} }
func GteExpr(a, b Expr) Expr { return OpExpr{Name: "$gte", Args: []Expr{a, b}, style: styleArray} }
func LtExpr(a, b Expr) Expr { return OpExpr{Name: "$lt", Args: []Expr{a, b}, style: styleArray} }
func LteExpr(a, b Expr) Expr { return OpExpr{Name: "$lte", Args: []Expr{a, b}, style: styleArray} }

// --- Boolean operators ---

func BoolAnd(args ...Expr) Expr { return OpExpr{Name: "$and", Args: args, style: styleArray} }
func BoolOr(args ...Expr) Expr  { return OpExpr{Name: "$or", Args: args, style: styleArray} }
func BoolNot(a Expr) Expr       { return OpExpr{Name: "$not", Args: []Expr{a}, style: styleArray} }

// --- Conditional operators ---

// Cond builds { $cond: { if: ifE, then: thenE, else: elseE } }.
func Cond(ifE, thenE, elseE Expr) Expr {
	return OpExpr{
		Name:  "$cond",
		Args:  []Expr{ifE, thenE, elseE},
		Names: []string{"if", "then", "else"},
		style: styleNamed,
	}
}

func IfNull(e, replacement Expr) Expr {
	return OpExpr{Name: "$ifNull", Args: []Expr{e, replacement}, style: styleArray}
}

// --- String operators ---

func Concat(args ...Expr) Expr   { return OpExpr{Name: "$concat", Args: args, style: styleArray} }
func ToLower(a Expr) Expr        { return OpExpr{Name: "$toLower", Args: []Expr{a}, style: styleSingle} }
func ToUpper(a Expr) Expr        { return OpExpr{Name: "$toUpper", Args: []Expr{a}, style: styleSingle} }
func StrLenCP(a Expr) Expr       { return OpExpr{Name: "$strLenCP", Args: []Expr{a}, style: styleSingle} }

// --- Array operators ---

func Size(a Expr) Expr { return OpExpr{Name: "$size", Args: []Expr{a}, style: styleSingle} }
func ArrayElemAt(arr, idx Expr) Expr {
	return OpExpr{Name: "$arrayElemAt", Args: []Expr{arr, idx}, style: styleArray}
}

// Filter builds { $filter: { input, as, cond } }.
func Filter(input Expr, as string, cond Expr) Expr {
	return OpExpr{
		Name:  "$filter",
		Args:  []Expr{input, Lit{as}, cond},
		Names: []string{"input", "as", "cond"},
		style: styleNamed,
	}
}

// MapExpr builds { $map: { input, as, in } }. Named MapExpr to avoid
// colliding with the Map workflow op.
func MapExpr(input Expr, as string, in Expr) Expr {
	return OpExpr{
		Name:  "$map",
		Args:  []Expr{input, Lit{as}, in},
		Names: []string{"input", "as", "in"},
		style: styleNamed,
	}
}

// --- Object operators ---

func MergeObjects(args ...Expr) Expr { return OpExpr{Name: "$mergeObjects", Args: args, style: styleArray} }

func GetField(field Expr, input Expr) Expr {
	return OpExpr{Name: "$getField", Args: []Expr{field, input}, Names: []string{"field", "input"}, style: styleNamed}
}

// --- Literal / misc ---

func Literal(v interface{}) Expr { return Lit{Value: v} }

func Let(vars bson.D, in Expr) Expr {
	return OpExpr{
		Name:  "$let",
		Args:  []Expr{Lit{vars}, in},
		Names: []string{"vars", "in"},
		style: styleNamed,
	}
}

// --- Group accumulator operators (only legal inside a Group stage) ---

func Sum(a Expr) Expr       { return GroupOp{Name: "$sum", Args: []Expr{a}, style: styleSingle} }
func Avg(a Expr) Expr       { return GroupOp{Name: "$avg", Args: []Expr{a}, style: styleSingle} }
func Min(a Expr) Expr       { return GroupOp{Name: "$min", Args: []Expr{a}, style: styleSingle} }
func Max(a Expr) Expr       { return GroupOp{Name: "$max", Args: []Expr{a}, style: styleSingle} }
func First(a Expr) Expr     { return GroupOp{Name: "$first", Args: []Expr{a}, style: styleSingle} }
func Last(a Expr) Expr      { return GroupOp{Name: "$last", Args: []Expr{a}, style: styleSingle} }
func Push(a Expr) Expr      { return GroupOp{Name: "$push", Args: []Expr{a}, style: styleSingle} }
func AddToSet(a Expr) Expr  { return GroupOp{Name: "$addToSet", Args: []Expr{a}, style: styleSingle} }
func StdDevPop(a Expr) Expr { return GroupOp{Name: "$stdDevPop", Args: []Expr{a}, style: styleSingle} }

// Count returns { $sum: 1 }, the classic MongoDB idiom for counting
// documents within a group (the native $count accumulator requires a
// narrower server version than $sum: 1). No code in this package calls it;
// it is a helper for callers building accumulators.
func Count() Expr { return Sum(Lit{int32(1)}) }
