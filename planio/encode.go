package planio

import (
	"encoding/json"

	wf "github.com/arrowdb/wfplan"
)

// EncodeTask renders a compiled Task as pretty JSON, for handing a
// compiled plan to a debugging client or logging it alongside the
// pipeline that produced it.
func EncodeTask(t wf.Task) string { return wf.TaskJSON(t) }

// EncodeTaskCompact renders a compiled Task as compact JSON.
func EncodeTaskCompact(t wf.Task) string { return wf.TaskCompactJSON(t) }

// debugNode mirrors wf.DebugNode's exported shape so encoding/json can
// marshal an op graph's debug tree without this package reaching into
// wf's internals — Render() is the only op-graph introspection surface
// spec.md's debug contract (§6) grants outside the wf package itself.
type debugNode struct {
	Type     string            `json:"type"`
	Details  map[string]string `json:"details,omitempty"`
	Children []*debugNode      `json:"children,omitempty"`
}

// EncodeOpDebug renders op's debug tree (wf.Op.Render) as pretty JSON.
func EncodeOpDebug(op wf.Op) (string, error) {
	raw, err := json.MarshalIndent(convertDebugNode(op.Render()), "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func convertDebugNode(n *wf.DebugNode) *debugNode {
	if n == nil {
		return nil
	}
	children := make([]*debugNode, len(n.Children))
	for i, c := range n.Children {
		children[i] = convertDebugNode(c)
	}
	return &debugNode{Type: n.Type, Details: n.Details, Children: children}
}
