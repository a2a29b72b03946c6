package wf

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Selector is a Match stage's query predicate: an ordered, immutable list
// of clauses implicitly ANDed together, grounded on filter.go's chained
// Filter builder but rebuilt around typed DocVar field references so
// rewriteRefs can relocate fields when a Match is merged under lEft/rIght.
//
// A Selector built with Where carries an opaque JavaScript predicate and
// reports HasJS() == true; §4.7's pipelinability state machine treats any
// such Match as unable to run inside an aggregation pipeline stage.
type Selector struct {
	clauses []selClause
}

// selClause is the sum type for one predicate element of a Selector.
type selClause interface {
	toBSON() bson.E
	rewriteRefs(f RefFunc) selClause
	hasJS() bool
}

func sel(c selClause) Selector { return Selector{clauses: []selClause{c}} }

// ToBSON renders the selector as the bson.D MongoDB expects for $match.
func (s Selector) ToBSON() bson.D {
	d := make(bson.D, 0, len(s.clauses))
	for _, c := range s.clauses {
		d = append(d, c.toBSON())
	}
	return d
}

// IsEmpty reports whether the selector has no predicates (matches every
// document).
func (s Selector) IsEmpty() bool { return len(s.clauses) == 0 }

// HasJS reports whether any clause — at any depth of $and/$or/$nor/$not/
// $elemMatch nesting — is a Where predicate.
func (s Selector) HasJS() bool {
	for _, c := range s.clauses {
		if c.hasJS() {
			return true
		}
	}
	return false
}

// RewriteRefs relocates every field reference in s through f, preserving
// clause order.
func (s Selector) RewriteRefs(f RefFunc) Selector {
	out := make([]selClause, len(s.clauses))
	for i, c := range s.clauses {
		out[i] = c.rewriteRefs(f)
	}
	return Selector{clauses: out}
}

// And concatenates s with more, matching only documents that satisfy both
// (the teacher's chained-builder AND semantics).
func (s Selector) And(more Selector) Selector {
	return Selector{clauses: append(append([]selClause(nil), s.clauses...), more.clauses...)}
}

// --- leaf clause kinds ---

type cmpClause struct {
	Field DocVar
	Op    string // "$eq", "$ne", "$gt", "$gte", "$lt", "$lte"
	Value interface{}
}

func (c cmpClause) toBSON() bson.E {
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{{Key: c.Op, Value: c.Value}}}
}
func (c cmpClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	return c
}
func (c cmpClause) hasJS() bool { return false }

func cmpSel(field DocVar, op string, value interface{}) Selector {
	return sel(cmpClause{Field: field, Op: op, Value: value})
}

func EqSel(field DocVar, value interface{}) Selector  { return cmpSel(field, "$eq", value) }
func NeSel(field DocVar, value interface{}) Selector  { return cmpSel(field, "$ne", value) }
func GtSel(field DocVar, value interface{}) Selector  { return cmpSel(field, "$gt", value) }
func GteSel(field DocVar, value interface{}) Selector { return cmpSel(field, "$gte", value) }
func LtSel(field DocVar, value interface{}) Selector  { return cmpSel(field, "$lt", value) }
func LteSel(field DocVar, value interface{}) Selector { return cmpSel(field, "$lte", value) }

type inClause struct {
	Field  DocVar
	Negate bool
	Values []interface{}
}

func (c inClause) toBSON() bson.E {
	op := "$in"
	if c.Negate {
		op = "$nin"
	}
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{{Key: op, Value: c.Values}}}
}
func (c inClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	return c
}
func (c inClause) hasJS() bool { return false }

func InSel(field DocVar, values ...interface{}) Selector {
	return sel(inClause{Field: field, Values: values})
}
func NinSel(field DocVar, values ...interface{}) Selector {
	return sel(inClause{Field: field, Negate: true, Values: values})
}

type existsClause struct {
	Field  DocVar
	Exists bool
}

func (c existsClause) toBSON() bson.E {
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{{Key: "$exists", Value: c.Exists}}}
}
func (c existsClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	return c
}
func (c existsClause) hasJS() bool { return false }

func ExistsSel(field DocVar, exists bool) Selector {
	return sel(existsClause{Field: field, Exists: exists})
}

type regexClause struct {
	Field   DocVar
	Pattern string
	Options string
}

func (c regexClause) toBSON() bson.E {
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{
		{Key: "$regex", Value: c.Pattern},
		{Key: "$options", Value: c.Options},
	}}
}
func (c regexClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	return c
}
func (c regexClause) hasJS() bool { return false }

func RegexSel(field DocVar, pattern, options string) Selector {
	return sel(regexClause{Field: field, Pattern: pattern, Options: options})
}

type sizeClause struct {
	Field DocVar
	N     int
}

func (c sizeClause) toBSON() bson.E {
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{{Key: "$size", Value: c.N}}}
}
func (c sizeClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	return c
}
func (c sizeClause) hasJS() bool { return false }

func SizeSel(field DocVar, n int) Selector { return sel(sizeClause{Field: field, N: n}) }

// --- logical clause kinds ---

type boolClause struct {
	Op   string // "$and", "$or", "$nor"
	Subs []Selector
}

func (c boolClause) toBSON() bson.E {
	arr := make(bson.A, len(c.Subs))
	for i, s := range c.Subs {
		arr[i] = s.ToBSON()
	}
	return bson.E{Key: c.Op, Value: arr}
}
func (c boolClause) rewriteRefs(f RefFunc) selClause {
	subs := make([]Selector, len(c.Subs))
	for i, s := range c.Subs {
		subs[i] = s.RewriteRefs(f)
	}
	return boolClause{Op: c.Op, Subs: subs}
}
func (c boolClause) hasJS() bool {
	for _, s := range c.Subs {
		if s.HasJS() {
			return true
		}
	}
	return false
}

func AndSel(selectors ...Selector) Selector { return sel(boolClause{Op: "$and", Subs: selectors}) }
func OrSel(selectors ...Selector) Selector  { return sel(boolClause{Op: "$or", Subs: selectors}) }
func NorSel(selectors ...Selector) Selector { return sel(boolClause{Op: "$nor", Subs: selectors}) }

type notClause struct {
	Field DocVar
	Inner Selector
}

func (c notClause) toBSON() bson.E {
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{{Key: "$not", Value: c.Inner.ToBSON()}}}
}
func (c notClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	c.Inner = c.Inner.RewriteRefs(f)
	return c
}
func (c notClause) hasJS() bool { return c.Inner.HasJS() }

func NotSel(field DocVar, inner Selector) Selector {
	return sel(notClause{Field: field, Inner: inner})
}

type elemMatchClause struct {
	Field DocVar
	Inner Selector
}

func (c elemMatchClause) toBSON() bson.E {
	return bson.E{Key: fieldKey(c.Field), Value: bson.D{{Key: "$elemMatch", Value: c.Inner.ToBSON()}}}
}
func (c elemMatchClause) rewriteRefs(f RefFunc) selClause {
	c.Field = rebaseField(c.Field, f)
	c.Inner = c.Inner.RewriteRefs(f)
	return c
}
func (c elemMatchClause) hasJS() bool { return c.Inner.HasJS() }

func ElemMatchSel(field DocVar, inner Selector) Selector {
	return sel(elemMatchClause{Field: field, Inner: inner})
}

// --- $expr / $where / raw escape hatches ---

type exprClause struct{ E Expr }

func (c exprClause) toBSON() bson.E { return bson.E{Key: "$expr", Value: c.E.ToBSON()} }
func (c exprClause) rewriteRefs(f RefFunc) selClause {
	return exprClause{E: RewriteRefs(c.E, f)}
}
func (c exprClause) hasJS() bool { return false }

// ExprSel builds { $expr: e }, a selector whose comparison is expressed in
// the document-expression language rather than a field/operator pair.
func ExprSel(e Expr) Selector { return sel(exprClause{E: e}) }

type whereClause struct{ JS string }

func (c whereClause) toBSON() bson.E        { return bson.E{Key: "$where", Value: c.JS} }
func (c whereClause) rewriteRefs(RefFunc) selClause { return c }
func (c whereClause) hasJS() bool           { return true }

// WhereSel builds { $where: jsExpr }, an opaque JavaScript predicate
// evaluated with the document bound to "this". Any Match carrying a
// WhereSel clause is unpipelinable (spec.md §4.7): it forces the crush
// pass to fall back to map-reduce rather than an aggregation $match stage.
func WhereSel(jsExpr string) Selector { return sel(whereClause{JS: jsExpr}) }

type rawClause struct{ D bson.D }

func (c rawClause) toBSON() bson.E {
	if len(c.D) == 1 {
		return c.D[0]
	}
	return bson.E{Key: "$and", Value: bson.A{c.D}}
}
func (c rawClause) rewriteRefs(RefFunc) selClause { return c }
func (c rawClause) hasJS() bool                   { return false }

// RawSel wraps a pre-built bson.D predicate as an opaque selector clause,
// for operators this package does not model explicitly. It is not
// reachable by rewriteRefs.
func RawSel(d bson.D) Selector { return sel(rawClause{D: d}) }

// fieldKey renders the dotted field path a clause's key uses. A rooted
// reference (v.Root != "") has no meaning as a query field and is an
// immediate programming error, since $match predicates only ever name
// plain document fields.
func fieldKey(v DocVar) string {
	if v.Root != "" {
		panic("wf: selector field must not be a rooted DocVar")
	}
	return v.String()[1:] // strip the leading "$"
}

func rebaseField(v DocVar, f RefFunc) DocVar {
	if nv, ok := f(v); ok {
		return nv
	}
	return v
}
