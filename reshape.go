package wf

// ReshapeNode is either an Expr leaf or a nested Reshape, the two things a
// Reshape.Doc/Reshape.Arr entry can hold (spec.md §3 "Reshapes").
type ReshapeNode interface {
	isReshapeNode()
	mapUp(f func(Expr) Expr) ReshapeNode
}

// reshapeExpr adapts an Expr so it satisfies ReshapeNode.
type reshapeExpr struct{ Expr }

func (reshapeExpr) isReshapeNode() {}
func (r reshapeExpr) mapUp(f func(Expr) Expr) ReshapeNode {
	return reshapeExpr{r.Expr.MapUp(f)}
}

// NodeExpr wraps an Expr leaf as a ReshapeNode.
func NodeExpr(e Expr) ReshapeNode { return reshapeExpr{e} }

// AsExpr reports whether n is a plain expression leaf and returns it.
func AsExpr(n ReshapeNode) (Expr, bool) {
	re, ok := n.(reshapeExpr)
	if !ok {
		return nil, false
	}
	return re.Expr, true
}

// field is a name/node pair preserving insertion order inside a Doc.
type field struct {
	Name string
	Node ReshapeNode
}

// Reshape is a record-constructor description, either document-shaped
// (Doc, ordered name -> node) or array-shaped (Arr, ordered index -> node).
// Exactly one of Doc/IsArr applies; insertion order is preserved across
// every rewrite and merge (spec.md invariant 3).
type Reshape struct {
	fields []field // used when IsArr == false
	elems  []ReshapeNode
	IsArr  bool
}

func (Reshape) isReshapeNode() {}

// NewDoc builds a document-shaped Reshape from name/node pairs given in
// declaration order. Duplicate names are not checked, here or by the
// smart constructors.
func NewDoc(names []string, nodes []ReshapeNode) Reshape {
	fs := make([]field, len(names))
	for i, n := range names {
		fs[i] = field{Name: n, Node: nodes[i]}
	}
	return Reshape{fields: fs}
}

// NewArr builds an array-shaped Reshape from nodes in positional order.
func NewArr(nodes []ReshapeNode) Reshape {
	return Reshape{elems: append([]ReshapeNode(nil), nodes...), IsArr: true}
}

// Names returns the declared field order of a Doc reshape (nil for Arr).
func (r Reshape) Names() []string {
	if r.IsArr {
		return nil
	}
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Get returns the node bound to name in a Doc reshape.
func (r Reshape) Get(name string) (ReshapeNode, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Node, true
		}
	}
	return nil, false
}

// Elems returns the positional nodes of an Arr reshape.
func (r Reshape) Elems() []ReshapeNode { return r.elems }

// Set returns a copy of r with name rebound to node, appending it at the
// end of the declared order if it is new. r must be a Doc reshape.
func (r Reshape) Set(name string, node ReshapeNode) Reshape {
	out := Reshape{fields: append([]field(nil), r.fields...)}
	for i, f := range out.fields {
		if f.Name == name {
			out.fields[i].Node = node
			return out
		}
	}
	out.fields = append(out.fields, field{Name: name, Node: node})
	return out
}

// mapUp rewrites every expression leaf bottom-up, preserving shape and
// field order.
func (r Reshape) mapUp(f func(Expr) Expr) ReshapeNode {
	if r.IsArr {
		elems := make([]ReshapeNode, len(r.elems))
		for i, e := range r.elems {
			elems[i] = e.mapUp(f)
		}
		return Reshape{elems: elems, IsArr: true}
	}
	fields := make([]field, len(r.fields))
	for i, fl := range r.fields {
		fields[i] = field{Name: fl.Name, Node: fl.Node.mapUp(f)}
	}
	return Reshape{fields: fields}
}

// MapUp rewrites every expression leaf reachable from r bottom-up.
func (r Reshape) MapUp(f func(Expr) Expr) Reshape {
	return r.mapUp(f).(Reshape)
}

// RewriteRefs rewrites every DocVar reference reachable from r through f,
// preserving shape and declared field order (spec.md invariant 3).
func (r Reshape) RewriteRefs(f RefFunc) Reshape {
	return r.MapUp(func(e Expr) Expr { return RewriteRefs(e, f) })
}

// MergeReshape attempts to combine two reshapes into one with no leaf
// conflicts, recursing into shared field names that are themselves
// reshapes (spec.md §3 "Reshapes are recursively mergeable"). Arr
// reshapes never merge with anything but another Arr of equal length
// whose elements pairwise merge; mismatched shapes always fail.
func MergeReshape(a, b Reshape) (Reshape, bool) {
	if a.IsArr != b.IsArr {
		return Reshape{}, false
	}
	if a.IsArr {
		if len(a.elems) != len(b.elems) {
			return Reshape{}, false
		}
		out := make([]ReshapeNode, len(a.elems))
		for i := range a.elems {
			m, ok := mergeNode(a.elems[i], b.elems[i])
			if !ok {
				return Reshape{}, false
			}
			out[i] = m
		}
		return Reshape{elems: out, IsArr: true}, true
	}

	out := Reshape{fields: append([]field(nil), a.fields...)}
	for _, bf := range b.fields {
		if af, ok := out.Get(bf.Name); ok {
			m, ok := mergeNode(af, bf.Node)
			if !ok {
				return Reshape{}, false
			}
			out = out.Set(bf.Name, m)
		} else {
			out.fields = append(out.fields, bf)
		}
	}
	return out, true
}

// mergeNode merges two reshape nodes: two sub-reshapes recurse, two
// identical expressions merge trivially, anything else conflicts.
func mergeNode(a, b ReshapeNode) (ReshapeNode, bool) {
	ar, aIsReshape := a.(Reshape)
	br, bIsReshape := b.(Reshape)
	if aIsReshape && bIsReshape {
		m, ok := MergeReshape(ar, br)
		if !ok {
			return nil, false
		}
		return m, true
	}
	if aIsReshape != bIsReshape {
		return nil, false
	}
	ae, _ := AsExpr(a)
	be, _ := AsExpr(b)
	if exprEqual(ae, be) {
		return a, true
	}
	return nil, false
}

// exprEqual reports structural equality of two expressions by comparing
// their rendered BSON form, sufficient for the merge conflict check above
// (it never needs to distinguish expressions beyond what they render as).
func exprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bsonDeepEqual(a.ToBSON(), b.ToBSON())
}
