package wf

// RedactOpNode is a Pipeline op pruning sub-documents per document based
// on an expression evaluated at each level ($redact).
type RedactOpNode struct {
	Src Op
	E   Expr
}

func (*RedactOpNode) isOp() {}

func (r *RedactOpNode) Source() Op            { return r.Src }
func (r *RedactOpNode) Reparent(newSrc Op) Op { return &RedactOpNode{Src: newSrc, E: r.E} }
func (r *RedactOpNode) Stage(base DocVar) Stage {
	return RedactStage{E: RewriteRefs(r.E, baseRebase(base))}
}
func (r *RedactOpNode) rewriteRefs(f RefFunc) Op {
	return &RedactOpNode{Src: r.Src, E: RewriteRefs(r.E, f)}
}

func (r *RedactOpNode) Render() *DebugNode {
	return single("Redact", map[string]string{"expr": toCompactJSON(r.E.ToBSON())}, r.Src)
}

// MakeRedact is Redact's smart constructor. There is no single-op
// coalescing rule for Redact — only merge's Redact-vs-Redact sequencing
// rule (§4.3 case 13) — so construction never rewrites its input.
func MakeRedact(src Op, e Expr) Op {
	return &RedactOpNode{Src: src, E: e}
}
