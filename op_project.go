package wf

// ProjectOpNode is a Pipeline op reshaping its source's documents through
// a Reshape. Project resets the document base to ROOT: anything
// downstream addresses fields of the *new* shape, not the source's.
type ProjectOpNode struct {
	Src   Op
	Shape Reshape
}

func (*ProjectOpNode) isOp() {}

func (p *ProjectOpNode) Source() Op            { return p.Src }
func (p *ProjectOpNode) Reparent(newSrc Op) Op { return &ProjectOpNode{Src: newSrc, Shape: p.Shape} }
func (p *ProjectOpNode) Stage(base DocVar) Stage {
	return ProjectStage{Shape: p.Shape.RewriteRefs(baseRebase(base))}
}
func (p *ProjectOpNode) rewriteRefs(f RefFunc) Op {
	return &ProjectOpNode{Src: p.Src, Shape: p.Shape.RewriteRefs(f)}
}

func (p *ProjectOpNode) Render() *DebugNode {
	details := map[string]string{"shape": toCompactJSON(reshapeToBSON(p.Shape))}
	return single("Project", details, p.Src)
}

// MakeProject is Project's smart constructor, applying the three fusion
// rules of spec.md §4.1:
//
//   - Project over Project: inline the outer reshape through the inner
//     when every outer reference resolves to an inner definition.
//   - Project over Group: fold a pass-through/rename-only project back
//     into the group's own output names.
//   - Project over (Unwind over Group): the same fold, additionally
//     rewriting the unwound path when it names a renamed field.
func MakeProject(src Op, shape Reshape) Op {
	switch s := src.(type) {
	case *ProjectOpNode:
		if fused, ok := tryInlineProject(shape, s.Shape); ok {
			return MakeProject(s.Src, fused)
		}
	case *GroupOpNode:
		if fused, _, ok := tryFuseProjectOverGroup(shape, s); ok {
			return fused
		}
	case *UnwindOpNode:
		if g, ok := s.Src.(*GroupOpNode); ok {
			if fused, renames, ok := tryFuseProjectOverGroup(shape, g); ok {
				path := s.Path
				if len(path.Path) > 0 {
					if newName, renamed := renames[path.Path[0]]; renamed {
						path = DocVar{Path: append([]string{newName}, path.Path[1:]...)}
					}
				}
				return MakeUnwind(fused, path, s.IncludeArrayIndex, s.PreserveNullAndEmptyArrays)
			}
		}
	}
	return &ProjectOpNode{Src: src, Shape: shape}
}

// tryInlineProject pushes outer through inner: every Ref in outer that
// names a top-level inner field is replaced by inner's definition for
// that field. Fails (ok == false) if any outer reference cannot be
// resolved against inner, per spec.md's "Otherwise keep both".
func tryInlineProject(outer, inner Reshape) (Reshape, bool) {
	if inner.IsArr {
		return Reshape{}, false
	}
	ok := true
	fused := outer.MapUp(func(e Expr) Expr {
		if !ok {
			return e
		}
		r, isRef := e.(Ref)
		if !isRef {
			return e
		}
		if r.V.Root != "" || len(r.V.Path) == 0 {
			ok = false
			return e
		}
		node, found := inner.Get(r.V.Path[0])
		if !found {
			ok = false
			return e
		}
		innerExpr, isExpr := AsExpr(node)
		if !isExpr {
			ok = false
			return e
		}
		if len(r.V.Path) == 1 {
			return innerExpr
		}
		innerRef, isInnerRef := innerExpr.(Ref)
		if !isInnerRef {
			ok = false
			return e
		}
		return Ref{V: innerRef.V.Concat(DocVar{Path: r.V.Path[1:]})}
	})
	if !ok {
		return Reshape{}, false
	}
	return fused, true
}

// tryFuseProjectOverGroup folds a project that only renames or passes
// through a group's output fields back into the group itself, returning
// the old-name -> new-name rename map so callers (the three-way Unwind
// fusion) can relocate any other reference that used the old names.
func tryFuseProjectOverGroup(outer Reshape, group *GroupOpNode) (*GroupOpNode, map[string]string, bool) {
	if outer.IsArr {
		return nil, nil, false
	}
	renames := make(map[string]string, len(outer.fields))
	grouped := make(map[string]Expr, len(outer.fields))
	names := make([]string, 0, len(outer.fields))
	for _, f := range outer.fields {
		e, isExpr := AsExpr(f.Node)
		if !isExpr {
			return nil, nil, false
		}
		ref, isRef := e.(Ref)
		if !isRef || ref.V.Root != "" || len(ref.V.Path) != 1 {
			return nil, nil, false
		}
		oldName := ref.V.Path[0]
		acc, ok := group.Grouped[oldName]
		if !ok {
			return nil, nil, false
		}
		renames[oldName] = f.Name
		grouped[f.Name] = acc
		names = append(names, f.Name)
	}
	return &GroupOpNode{Src: group.Src, By: group.By, Names: names, Grouped: grouped}, renames, true
}
