// Package control implements the flow-control node types whose semantics are
// part of the execution model: ForEachItem, Switch, Merge, PassThrough and
// the ForEach fan-out engine.
package control

import (
	"context"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// TypeForEachItem is the registry name of the sub-workflow entry node.
const TypeForEachItem = "foreach-item"

// ForEachItemNode is the distinguished entry node of a ForEach sub-workflow.
// The fan-out engine injects the current item, index and globals into its
// input values before each iteration; Process forwards them unchanged.
type ForEachItemNode struct {
	workflow.BaseNode
}

// NewForEachItemNode creates a ForEachItem node.
func NewForEachItemNode(def workflow.Definition) (workflow.Node, error) {
	n := &ForEachItemNode{BaseNode: workflow.NewBaseNode(def.ID, TypeForEachItem)}
	n.AddInputPort(workflow.PortForEachItem, workflow.TypeAny, false, nil)
	n.AddInputPort(workflow.PortForEachIndex, workflow.TypeNumber, false, nil)
	n.AddInputPort(workflow.PortForEachGlobalVars, workflow.TypeObject, false, nil)
	n.AddOutputPort("item", workflow.TypeAny)
	n.AddOutputPort("index", workflow.TypeNumber)
	n.AddOutputPort("global_vars", workflow.TypeObject)
	return n, nil
}

// Process forwards the injected iteration values.
func (n *ForEachItemNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	index := inputs[workflow.PortForEachIndex]
	if index == nil {
		index = float64(0)
	}
	globals, _ := inputs[workflow.PortForEachGlobalVars].(map[string]interface{})
	if globals == nil {
		globals = map[string]interface{}{}
	}
	return map[string]interface{}{
		"item":        inputs[workflow.PortForEachItem],
		"index":       index,
		"global_vars": globals,
	}, nil
}
