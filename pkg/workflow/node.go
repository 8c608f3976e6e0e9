package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Injection port names recognized by the ForEach engine. A node declaring any
// of these input ports receives the per-iteration item, index and globals.
const (
	PortForEachItem       = "foreach_item"
	PortForEachIndex      = "foreach_index"
	PortForEachGlobalVars = "foreach_global_vars"
)

// Node is the contract every workflow node implements. A node declares its
// input and output ports once at construction; the executor resolves its
// effective inputs and invokes Process exactly once per run.
type Node interface {
	// ID returns the node's graph-unique identifier.
	ID() string

	// Type returns the registry type name that created this node.
	Type() string

	// InputPorts returns the declared input ports keyed by name.
	InputPorts() map[string]PortDescriptor

	// OutputPorts returns the declared output ports keyed by name.
	OutputPorts() map[string]PortDescriptor

	// InputValues returns the constant input values set at graph build time.
	InputValues() map[string]interface{}

	// SetInputValue sets a constant input value. Connections targeting the
	// same port override it at resolution time.
	SetInputValue(port string, value interface{})

	// Process executes the node with its resolved effective inputs and
	// returns a value per output port. Blocking work must honor ctx.
	Process(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error)
}

// BaseNode provides port bookkeeping for node implementations.
// Embed it and declare ports in the constructor.
type BaseNode struct {
	id          string
	typeName    string
	inputPorts  map[string]PortDescriptor
	outputPorts map[string]PortDescriptor
	inputValues map[string]interface{}
}

// NewBaseNode creates a base node. An empty id is replaced with a fresh UUID.
func NewBaseNode(id, typeName string) BaseNode {
	if id == "" {
		id = uuid.NewString()
	}
	return BaseNode{
		id:          id,
		typeName:    typeName,
		inputPorts:  make(map[string]PortDescriptor),
		outputPorts: make(map[string]PortDescriptor),
		inputValues: make(map[string]interface{}),
	}
}

// ID returns the node id.
func (n *BaseNode) ID() string { return n.id }

// Type returns the registry type name.
func (n *BaseNode) Type() string { return n.typeName }

// InputPorts returns the declared input ports.
func (n *BaseNode) InputPorts() map[string]PortDescriptor { return n.inputPorts }

// OutputPorts returns the declared output ports.
func (n *BaseNode) OutputPorts() map[string]PortDescriptor { return n.outputPorts }

// InputValues returns the constant input values.
func (n *BaseNode) InputValues() map[string]interface{} { return n.inputValues }

// SetInputValue sets a constant input value.
func (n *BaseNode) SetInputValue(port string, value interface{}) {
	n.inputValues[port] = value
}

// AddInputPort declares an input port.
func (n *BaseNode) AddInputPort(name string, t PortType, required bool, defaultValue interface{}) {
	n.inputPorts[name] = PortDescriptor{
		Name:         name,
		Type:         t,
		Required:     required,
		DefaultValue: defaultValue,
	}
}

// AddInputPortWithOptions declares an input port restricted to a value set.
func (n *BaseNode) AddInputPortWithOptions(name string, t PortType, required bool, defaultValue interface{}, options []interface{}) {
	n.inputPorts[name] = PortDescriptor{
		Name:         name,
		Type:         t,
		Required:     required,
		DefaultValue: defaultValue,
		Options:      options,
	}
}

// AddOutputPort declares an output port.
func (n *BaseNode) AddOutputPort(name string, t PortType) {
	n.outputPorts[name] = PortDescriptor{Name: name, Type: t, Required: true}
}

// AcceptsForEachInjection reports whether the node declares any of the
// ForEach injection ports.
func (n *BaseNode) AcceptsForEachInjection() bool {
	for _, name := range []string{PortForEachItem, PortForEachIndex, PortForEachGlobalVars} {
		if _, ok := n.inputPorts[name]; ok {
			return true
		}
	}
	return false
}

// Helpers for reading effective inputs inside Process implementations.

// StringInput reads a string input, returning fallback when absent.
func StringInput(inputs map[string]interface{}, name, fallback string) string {
	if v, ok := inputs[name].(string); ok {
		return v
	}
	return fallback
}

// BoolInput reads a boolean input, returning fallback when absent.
func BoolInput(inputs map[string]interface{}, name string, fallback bool) bool {
	if v, ok := inputs[name].(bool); ok {
		return v
	}
	return fallback
}

// NumberInput reads a numeric input, returning fallback when absent.
func NumberInput(inputs map[string]interface{}, name string, fallback float64) float64 {
	if v, ok := AsNumber(inputs[name]); ok {
		return v
	}
	return fallback
}

// IntInput reads a numeric input truncated to int, returning fallback when absent.
func IntInput(inputs map[string]interface{}, name string, fallback int) int {
	if v, ok := AsNumber(inputs[name]); ok {
		return int(v)
	}
	return fallback
}
