package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("echo", "test", func(def Definition) (Node, error) {
		n := newStubNode(def.ID, "echo")
		n.AddInputPort("in", TypeAny, false, nil)
		n.AddOutputPort("out", TypeAny)
		return n, nil
	})
	return reg
}

func TestRegistry_CreateKnownType(t *testing.T) {
	reg := newTestRegistry()
	assert.True(t, reg.Has("echo"))

	node, err := reg.Create(Definition{ID: "n1", Type: "echo"})
	require.NoError(t, err)
	assert.Equal(t, "n1", node.ID())
	assert.Equal(t, "echo", node.Type())
}

func TestRegistry_CreateUnknownType(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.Create(Definition{ID: "n1", Type: "mystery"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestRegistry_CreateReturnsFreshInstances(t *testing.T) {
	reg := newTestRegistry()
	a, err := reg.Create(Definition{ID: "n1", Type: "echo"})
	require.NoError(t, err)
	b, err := reg.Create(Definition{ID: "n1", Type: "echo"})
	require.NoError(t, err)

	a.SetInputValue("in", "residue")
	assert.Empty(t, b.InputValues())
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := newTestRegistry()
	reg.Register("alpha", "aaa", func(def Definition) (Node, error) {
		return newStubNode(def.ID, "alpha"), nil
	})

	infos := reg.List()
	require.Len(t, infos, 2)
	assert.Equal(t, TypeInfo{Category: "aaa", Type: "alpha"}, infos[0])
	assert.Equal(t, TypeInfo{Category: "test", Type: "echo"}, infos[1])
}

func TestRegistry_Ports(t *testing.T) {
	reg := newTestRegistry()
	inputs, outputs, err := reg.Ports("echo")
	require.NoError(t, err)
	assert.Contains(t, inputs, "in")
	assert.Contains(t, outputs, "out")

	_, _, err = reg.Ports("mystery")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestDefinition_IntParam(t *testing.T) {
	def := Definition{Inputs: map[string]interface{}{"output_count": float64(3)}}
	assert.Equal(t, 3, def.IntParam("output_count", 1))
	assert.Equal(t, 1, def.IntParam("missing", 1))
}
