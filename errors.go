package wf

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// Error kinds are matchable and carry formatted context, replacing the
// teacher's plain errors.New sentinels, so callers can tell construction
// failures apart rather than just surfacing an opaque error string.
var (
	// ErrInvalidField is returned when a struct field path cannot be
	// resolved to a BSON field name via reflection.
	ErrInvalidField = errors.NewKind("invalid field path: %s")

	// ErrTypeChangingRewrite fires when a rewrite substitutes a Group
	// stage's accumulator expression with something that is no longer a
	// GroupOp (spec.md invariant 2). This is always a programming error,
	// never a data-dependent runtime condition.
	ErrTypeChangingRewrite = errors.NewKind("rewrite of group field %q produced a non-accumulator expression")

	// ErrInvalidFoldLeftTail is returned when a FoldLeft is constructed
	// with zero tails; FoldLeft is 1+N arity and requires at least one
	// tail op beside its head (spec.md node table).
	ErrInvalidFoldLeftTail = errors.NewKind("FoldLeft requires at least one tail op")

	// ErrTwoGeoNearInChain is returned when a GeoNear op would be
	// coalesced directly over another GeoNear. The spec leaves the
	// semantics of stacking two geo-near queries unspecified, so rather
	// than silently keeping one and discarding the other, construction
	// fails outright (spec.md §9 open question).
	ErrTwoGeoNearInChain = errors.NewKind("cannot chain GeoNear directly over another GeoNear")

	// ErrReservedFieldName is the kind for user-supplied input that names
	// one of the two reserved merge-namespace labels (spec.md invariant 4).
	// No constructor or decoder in this package checks for those labels or
	// returns it.
	ErrReservedFieldName = errors.NewKind("field name %q is reserved for merge namespacing")

	// ErrUnsupportedJS is the kind for JavaScript outside the closed subset
	// this package can render and reason about (spec.md §6, "JS subset used
	// in UDF bodies"). The js.go AST admits only that subset, so no UDF
	// check returns it; crush panics with it when it meets an op type it
	// has no case for.
	ErrUnsupportedJS = errors.NewKind("unsupported JavaScript construct: %s")

	// ErrEmptyJoinSet is returned when a Join op is constructed with no
	// source ops; Join's arity is "set" but an empty set has no useful
	// execution semantics.
	ErrEmptyJoinSet = errors.NewKind("Join requires at least one source op")

	// ErrReshapeConflict is the kind for two reshapes that cannot be merged
	// because a leaf field is bound to two different expressions. No code
	// in this package returns it: MergeReshape reports a conflict with
	// ok == false and merge falls back to lEft/rIght wrapping.
	ErrReshapeConflict = errors.NewKind("reshape merge conflict on field %q")

	// ErrFoldLeftTailNotReducible fires when crush reaches a FoldLeft tail
	// that did not lower to a MapReduceTask (spec.md §4.6): every tail is
	// required to end in a Reduce, and finalize is supposed to guarantee
	// that before crush ever runs, so this only fires on a malformed graph
	// built by hand rather than through the smart constructors.
	ErrFoldLeftTailNotReducible = errors.NewKind("FoldLeft tail did not lower to a map-reduce task")
)
