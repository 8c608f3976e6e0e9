package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

func TestForEachItemNode_ForwardsInjectedValues(t *testing.T) {
	node, err := NewForEachItemNode(workflow.Definition{ID: "entry", Type: TypeForEachItem})
	require.NoError(t, err)

	globals := map[string]interface{}{"env": "test"}
	outputs, err := node.Process(context.Background(), map[string]interface{}{
		workflow.PortForEachItem:       "item-3",
		workflow.PortForEachIndex:      float64(3),
		workflow.PortForEachGlobalVars: globals,
	})
	require.NoError(t, err)
	assert.Equal(t, "item-3", outputs["item"])
	assert.Equal(t, float64(3), outputs["index"])
	assert.Equal(t, globals, outputs["global_vars"])
}

func TestForEachItemNode_DefaultsWhenNotInjected(t *testing.T) {
	node, err := NewForEachItemNode(workflow.Definition{ID: "entry", Type: TypeForEachItem})
	require.NoError(t, err)

	outputs, err := node.Process(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Nil(t, outputs["item"])
	assert.Equal(t, float64(0), outputs["index"])
	assert.Equal(t, map[string]interface{}{}, outputs["global_vars"])
}

func TestForEachItemNode_DeclaresInjectionPorts(t *testing.T) {
	node, err := NewForEachItemNode(workflow.Definition{ID: "entry", Type: TypeForEachItem})
	require.NoError(t, err)

	inputs := node.InputPorts()
	assert.Contains(t, inputs, workflow.PortForEachItem)
	assert.Contains(t, inputs, workflow.PortForEachIndex)
	assert.Contains(t, inputs, workflow.PortForEachGlobalVars)
	for name, port := range inputs {
		assert.False(t, port.Required, "injection port %s must be optional", name)
	}
}
