package wf

// UnwindOpNode is a Pipeline op deconstructing an array field, emitting
// one output document per array element ($unwind).
type UnwindOpNode struct {
	Src                        Op
	Path                       DocVar
	IncludeArrayIndex          string
	PreserveNullAndEmptyArrays bool
}

func (*UnwindOpNode) isOp() {}

func (u *UnwindOpNode) Source() Op { return u.Src }
func (u *UnwindOpNode) Reparent(newSrc Op) Op {
	return &UnwindOpNode{Src: newSrc, Path: u.Path, IncludeArrayIndex: u.IncludeArrayIndex, PreserveNullAndEmptyArrays: u.PreserveNullAndEmptyArrays}
}
func (u *UnwindOpNode) Stage(base DocVar) Stage {
	s := UnwindStage{Path: u.Path, IncludeArrayIndex: u.IncludeArrayIndex, PreserveNullAndEmptyArrays: u.PreserveNullAndEmptyArrays}
	return s.rewriteRefs(baseRebase(base))
}
func (u *UnwindOpNode) rewriteRefs(f RefFunc) Op {
	return &UnwindOpNode{Src: u.Src, Path: rebaseField(u.Path, f), IncludeArrayIndex: u.IncludeArrayIndex, PreserveNullAndEmptyArrays: u.PreserveNullAndEmptyArrays}
}

func (u *UnwindOpNode) Render() *DebugNode {
	return single("Unwind", map[string]string{"path": u.Path.String()}, u.Src)
}

// MakeUnwind is Unwind's smart constructor. Unwind participates in merge
// fusions (cases 8, 14, 15, 16) but has no standalone coalescing rule of
// its own.
func MakeUnwind(src Op, path DocVar, includeArrayIndex string, preserveNullAndEmptyArrays bool) Op {
	return &UnwindOpNode{Src: src, Path: path, IncludeArrayIndex: includeArrayIndex, PreserveNullAndEmptyArrays: preserveNullAndEmptyArrays}
}
