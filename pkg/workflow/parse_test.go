package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGraphDefinition_InputAliases(t *testing.T) {
	doc := `{
		"nodes": {
			"a": {"type": "echo", "inputs": {"in": "via-inputs"}},
			"b": {"type": "echo", "input_values": {"in": "via-input-values"}},
			"c": {"type": "echo", "inputs": {"in": "wins"}, "input_values": {"in": "loses", "extra": 1}}
		},
		"connections": []
	}`

	def, err := ParseGraphDefinition([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"in": "via-inputs"}, def.Nodes["a"].EffectiveInputs())
	assert.Equal(t, map[string]interface{}{"in": "via-input-values"}, def.Nodes["b"].EffectiveInputs())

	merged := def.Nodes["c"].EffectiveInputs()
	assert.Equal(t, "wins", merged["in"])
	assert.Equal(t, float64(1), merged["extra"])
}

func TestParseGraphDefinition_BadJSON(t *testing.T) {
	_, err := ParseGraphDefinition([]byte("{nope"))
	require.Error(t, err)
}

func TestDefinitionFromValue(t *testing.T) {
	want := &GraphDefinition{Nodes: map[string]NodeDefinition{"a": {Type: "echo"}}}

	got, err := DefinitionFromValue(want)
	require.NoError(t, err)
	assert.Same(t, want, got)

	got, err = DefinitionFromValue(`{"nodes": {"a": {"type": "echo"}}, "connections": []}`)
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Nodes["a"].Type)

	got, err = DefinitionFromValue(map[string]interface{}{
		"nodes": map[string]interface{}{"a": map[string]interface{}{"type": "echo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Nodes["a"].Type)

	_, err = DefinitionFromValue(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSubWorkflow)
}

func TestGraphDefinition_Build(t *testing.T) {
	reg := newTestRegistry()
	def := &GraphDefinition{
		Nodes: map[string]NodeDefinition{
			"a": {Type: "echo", Inputs: map[string]interface{}{"in": "hello"}},
			"b": {Type: "echo"},
		},
		Connections: []Connection{
			{FromNode: "a", FromPort: "out", ToNode: "b", ToPort: "in"},
		},
	}

	graph, err := def.Build(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Len())
	assert.Equal(t, "hello", graph.Node("a").InputValues()["in"])
}

func TestGraphDefinition_Build_UnknownType(t *testing.T) {
	reg := newTestRegistry()
	def := &GraphDefinition{
		Nodes: map[string]NodeDefinition{"a": {Type: "mystery"}},
	}
	_, err := def.Build(reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestGraphDefinition_Build_InvalidGraph(t *testing.T) {
	reg := newTestRegistry()
	def := &GraphDefinition{
		Nodes: map[string]NodeDefinition{"a": {Type: "echo"}},
		Connections: []Connection{
			{FromNode: "a", FromPort: "out", ToNode: "ghost", ToPort: "in"},
		},
	}
	_, err := def.Build(reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
