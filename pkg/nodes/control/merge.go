package control

import (
	"context"
	"fmt"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// TypeMerge is the registry name of the first-non-empty selector node.
const TypeMerge = "merge"

// MergeNode emits the first non-empty value among input_0..input_{n-1} in
// ascending index order. It pairs with Switch: connect each routed output to
// one merge input and the node collapses the branches back to a single value.
type MergeNode struct {
	workflow.BaseNode
	inputCount int
}

// NewMergeNode creates a Merge. The input_count constructor parameter
// (default 2, minimum 1) fixes the number of candidate inputs.
func NewMergeNode(def workflow.Definition) (workflow.Node, error) {
	count := def.IntParam("input_count", 2)
	if count < 1 {
		count = 1
	}

	n := &MergeNode{
		BaseNode:   workflow.NewBaseNode(def.ID, TypeMerge),
		inputCount: count,
	}
	for i := 0; i < count; i++ {
		n.AddInputPort(fmt.Sprintf("input_%d", i), workflow.TypeAny, false, nil)
	}
	n.AddOutputPort("output", workflow.TypeAny)
	n.AddOutputPort("selected_index", workflow.TypeNumber)
	n.AddOutputPort("has_result", workflow.TypeBoolean)
	return n, nil
}

// InputCount returns the number of candidate inputs.
func (n *MergeNode) InputCount() int { return n.inputCount }

// Process selects the first non-empty input. With every input empty or
// absent, selected_index is -1, has_result is false and output stays absent.
func (n *MergeNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	for i := 0; i < n.inputCount; i++ {
		v, present := inputs[fmt.Sprintf("input_%d", i)]
		if !present || workflow.IsEmptyValue(v) {
			continue
		}
		return map[string]interface{}{
			"output":         v,
			"selected_index": float64(i),
			"has_result":     true,
		}, nil
	}
	return map[string]interface{}{
		"selected_index": float64(-1),
		"has_result":     false,
	}, nil
}
