package wf

import "strings"

// DocVar is a rooted field path: an optional root variable name (empty for
// the implicit document root) plus a non-empty-or-empty sequence of
// sub-path segments. It is the IR's only way to name "a location inside a
// document" — pipeline stage fields, group keys, and UDF field references
// all resolve through a DocVar.
//
// See spec.md §3 "Field paths and document variables".
type DocVar struct {
	Root string
	Path []string
}

// ROOT is the DocVar denoting the whole current document ("$$ROOT").
var ROOT = DocVar{}

// Var builds a DocVar rooted at a named system variable (e.g. "CURRENT",
// "ROOT") with the given sub-path.
func Var(root string, path ...string) DocVar {
	return DocVar{Root: root, Path: append([]string(nil), path...)}
}

// Field builds a DocVar addressing a plain document field path, equivalent
// to Var("", path...).
func Field(path ...string) DocVar {
	return DocVar{Path: append([]string(nil), path...)}
}

// IsRoot reports whether v refers to the document root with no sub-path.
func (v DocVar) IsRoot() bool {
	return v.Root == "" && len(v.Path) == 0
}

// StartsWith reports whether v and other share the same root and other's
// path is a prefix of v's path.
func (v DocVar) StartsWith(other DocVar) bool {
	if v.Root != other.Root {
		return false
	}
	if len(other.Path) > len(v.Path) {
		return false
	}
	for i, seg := range other.Path {
		if v.Path[i] != seg {
			return false
		}
	}
	return true
}

// Concat appends child's path onto v, keeping v's root. It is written
// `v \ child` in spec.md. child must not carry its own root (child.Root ==
// ""); concatenating two rooted DocVars is a programming error and panics,
// since the result would be ambiguous about which root wins.
func (v DocVar) Concat(child DocVar) DocVar {
	if child.Root != "" {
		panic("wf: Concat of a rooted DocVar onto another DocVar")
	}
	if child.IsRoot() {
		return v
	}
	return DocVar{Root: v.Root, Path: append(append([]string(nil), v.Path...), child.Path...)}
}

// Rebase returns the DocVar that results from interpreting v relative to a
// new base, i.e. base \ v with v's own root discarded (v is assumed to be a
// plain field reference being relocated under base). It is the
// single-DocVar building block that merge.go's rewrite helper and
// rewriteRefs use to relocate a whole branch under lEft/rIght.
func (v DocVar) Rebase(base DocVar) DocVar {
	if base.IsRoot() {
		return v
	}
	return base.Concat(DocVar{Path: v.Path})
}

// String renders a DocVar in "$field.sub" form, or "$$ROOT"/"$$VAR" form
// when rooted at a system variable, for debug rendering and error messages.
func (v DocVar) String() string {
	var b strings.Builder
	if v.Root != "" {
		b.WriteString("$$")
		b.WriteString(v.Root)
		for _, seg := range v.Path {
			b.WriteByte('.')
			b.WriteString(seg)
		}
		return b.String()
	}
	if len(v.Path) == 0 {
		return "$$ROOT"
	}
	b.WriteByte('$')
	b.WriteString(strings.Join(v.Path, "."))
	return b.String()
}

// Equal reports whether two DocVars refer to the exact same location.
func (v DocVar) Equal(other DocVar) bool {
	if v.Root != other.Root || len(v.Path) != len(other.Path) {
		return false
	}
	for i := range v.Path {
		if v.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}
