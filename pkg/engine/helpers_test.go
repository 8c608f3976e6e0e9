package engine

import (
	"context"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// testNode is a scriptable node for scheduler tests.
type testNode struct {
	workflow.BaseNode
	handler func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error)
}

func (n *testNode) Process(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	if n.handler != nil {
		return n.handler(ctx, inputs)
	}
	return map[string]interface{}{}, nil
}

// newTestNode creates a node with one any-typed input port "in" and one
// any-typed output port "out".
func newTestNode(id string, handler func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error)) *testNode {
	n := &testNode{BaseNode: workflow.NewBaseNode(id, "test"), handler: handler}
	n.AddInputPort("in", workflow.TypeAny, false, nil)
	n.AddOutputPort("out", workflow.TypeAny)
	return n
}

// emit returns a handler producing a fixed "out" value.
func emit(v interface{}) func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
	return func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"out": v}, nil
	}
}

// chain connects from.out to to.in.
func chain(g *workflow.Graph, from, to string) {
	g.AddConnection(workflow.Connection{FromNode: from, FromPort: "out", ToNode: to, ToPort: "in"})
}
