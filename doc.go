// Package wf is an op-graph intermediate representation and optimizer for
// compiling document-query plans into a MongoDB-style aggregation/map-reduce
// execution plan.
//
// A plan is built bottom-up from smart constructors (MakePure, MakeRead,
// MakeMatch, MakeProject, ...) that perform local peephole coalescing as the
// tree is assembled. Two plans can be joined with Merge, which shares their
// common prefix and namespaces any divergence under the reserved fields
// lEft/rIght. A finished plan is lowered to an executable Task with Compile,
// which prunes unused fields, applies finalize's rewrite rules, and then
// crushes the result to the task tree, in that order.
//
// The op layer is purely functional: every Op is an immutable value, and
// Merge, Compile, and their helpers are deterministic and safe to call
// concurrently on disjoint graphs.
package wf
