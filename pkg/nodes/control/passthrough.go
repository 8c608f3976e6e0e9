package control

import (
	"context"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// TypePassThrough is the registry name of the gated forwarding node.
const TypePassThrough = "passthrough"

// PassThroughNode forwards its data input when the gate opens: either the
// control input carries a non-empty value, or pass_on_empty is set. With the
// gate closed the output stays absent, which downstream Merge and PassThrough
// nodes read as empty.
type PassThroughNode struct {
	workflow.BaseNode
}

// NewPassThroughNode creates a PassThrough node.
func NewPassThroughNode(def workflow.Definition) (workflow.Node, error) {
	n := &PassThroughNode{BaseNode: workflow.NewBaseNode(def.ID, TypePassThrough)}
	n.AddInputPort("data", workflow.TypeAny, true, nil)
	n.AddInputPort("control", workflow.TypeAny, false, nil)
	n.AddInputPort("pass_on_empty", workflow.TypeBoolean, false, false)
	n.AddOutputPort("output", workflow.TypeAny)
	return n, nil
}

// Process applies the gate.
func (n *PassThroughNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	passOnEmpty := workflow.BoolInput(inputs, "pass_on_empty", false)
	if passOnEmpty || !workflow.IsEmptyValue(inputs["control"]) {
		return map[string]interface{}{"output": inputs["data"]}, nil
	}
	return map[string]interface{}{}, nil
}
