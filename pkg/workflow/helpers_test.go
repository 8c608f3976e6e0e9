package workflow

import "context"

// stubNode is a minimal node for structural tests. Ports are declared by the
// test; Process echoes its inputs unless a handler is set.
type stubNode struct {
	BaseNode
	handler func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error)
}

func newStubNode(id, typeName string) *stubNode {
	return &stubNode{BaseNode: NewBaseNode(id, typeName)}
}

func (n *stubNode) Process(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	if n.handler != nil {
		return n.handler(ctx, inputs)
	}
	return inputs, nil
}

// sourceSink returns a pair of nodes: src with one output port, dst with one
// input port, both typed t.
func sourceSink(t PortType) (*stubNode, *stubNode) {
	src := newStubNode("src", "stub")
	src.AddOutputPort("out", t)
	dst := newStubNode("dst", "stub")
	dst.AddInputPort("in", t, false, nil)
	return src, dst
}
