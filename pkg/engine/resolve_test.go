package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

func TestResolveInputs_ConnectionBeatsConstant(t *testing.T) {
	node := newTestNode("n", nil)
	node.SetInputValue("in", "constant")

	store := NewResultStore()
	require.NoError(t, store.Set("up", map[string]interface{}{"out": "from-connection"}))
	targets := map[workflow.Target]workflow.Source{
		{Node: "n", Port: "in"}: {Node: "up", Port: "out"},
	}

	inputs, err := ResolveInputs(node, targets, store)
	require.NoError(t, err)
	assert.Equal(t, "from-connection", inputs["in"])
}

func TestResolveInputs_ConstantBeatsDefault(t *testing.T) {
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPort("mode", workflow.TypeString, false, "default-mode")
	node.SetInputValue("mode", "constant-mode")

	inputs, err := ResolveInputs(node, nil, NewResultStore())
	require.NoError(t, err)
	assert.Equal(t, "constant-mode", inputs["mode"])
}

func TestResolveInputs_DefaultApplies(t *testing.T) {
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPort("mode", workflow.TypeString, false, "default-mode")

	inputs, err := ResolveInputs(node, nil, NewResultStore())
	require.NoError(t, err)
	assert.Equal(t, "default-mode", inputs["mode"])
}

func TestResolveInputs_OptionalAbsentStaysAbsent(t *testing.T) {
	node := newTestNode("n", nil)

	inputs, err := ResolveInputs(node, nil, NewResultStore())
	require.NoError(t, err)
	_, present := inputs["in"]
	assert.False(t, present)
}

func TestResolveInputs_MissingRequired(t *testing.T) {
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPort("data", workflow.TypeAny, true, nil)

	_, err := ResolveInputs(node, nil, NewResultStore())
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrMissingRequiredInput)

	var missing *workflow.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "n", missing.NodeID)
	assert.Equal(t, "data", missing.Port)
}

func TestResolveInputs_RequiredPortIgnoresDefault(t *testing.T) {
	// A default never satisfies a required port.
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPort("data", workflow.TypeString, true, "fallback")

	_, err := ResolveInputs(node, nil, NewResultStore())
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrMissingRequiredInput)
}

func TestResolveInputs_UpstreamOmittedPortFallsThrough(t *testing.T) {
	// Connected, but the upstream emitted nothing on that port: the constant
	// still applies.
	node := newTestNode("n", nil)
	node.SetInputValue("in", "constant")

	store := NewResultStore()
	require.NoError(t, store.Set("up", map[string]interface{}{}))
	targets := map[workflow.Target]workflow.Source{
		{Node: "n", Port: "in"}: {Node: "up", Port: "out"},
	}

	inputs, err := ResolveInputs(node, targets, store)
	require.NoError(t, err)
	assert.Equal(t, "constant", inputs["in"])
}

func TestResolveInputs_StringParsesIntoObjectPort(t *testing.T) {
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPort("payload", workflow.TypeJSON, true, nil)
	node.SetInputValue("payload", `{"k": true}`)

	inputs, err := ResolveInputs(node, nil, NewResultStore())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"k": true}, inputs["payload"])
}

func TestResolveInputs_CoercionFailureSurfaces(t *testing.T) {
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPort("payload", workflow.TypeJSON, true, nil)
	node.SetInputValue("payload", "{broken")

	_, err := ResolveInputs(node, nil, NewResultStore())
	require.Error(t, err)

	var coercion *workflow.CoercionError
	assert.ErrorAs(t, err, &coercion)
}

func TestResolveInputs_OptionsEnforced(t *testing.T) {
	node := &testNode{BaseNode: workflow.NewBaseNode("n", "test")}
	node.AddInputPortWithOptions("mode", workflow.TypeString, false, "a", []interface{}{"a", "b"})
	node.SetInputValue("mode", "z")

	_, err := ResolveInputs(node, nil, NewResultStore())
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrTypeMismatch)
}
