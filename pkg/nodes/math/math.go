// Package math implements the numeric node types.
package math

import (
	"context"
	"fmt"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// Registry type names.
const (
	TypeNumberInput   = "number-input"
	TypeBooleanInput  = "boolean-input"
	TypeMathOperation = "math-operation"
)

// Category groups the numeric node types in registry listings.
const Category = "math"

// Register registers all numeric node types.
func Register(reg *workflow.Registry) {
	reg.Register(TypeNumberInput, Category, NewNumberInputNode)
	reg.Register(TypeBooleanInput, Category, NewBooleanInputNode)
	reg.Register(TypeMathOperation, Category, NewMathOperationNode)
}

// NumberInputNode passes a constant numeric value into the graph.
type NumberInputNode struct {
	workflow.BaseNode
}

func NewNumberInputNode(def workflow.Definition) (workflow.Node, error) {
	n := &NumberInputNode{BaseNode: workflow.NewBaseNode(def.ID, TypeNumberInput)}
	n.AddInputPort("value", workflow.TypeNumber, true, nil)
	n.AddOutputPort("value", workflow.TypeNumber)
	return n, nil
}

func (n *NumberInputNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"value": workflow.NumberInput(inputs, "value", 0)}, nil
}

// BooleanInputNode passes a constant boolean value into the graph.
type BooleanInputNode struct {
	workflow.BaseNode
}

func NewBooleanInputNode(def workflow.Definition) (workflow.Node, error) {
	n := &BooleanInputNode{BaseNode: workflow.NewBaseNode(def.ID, TypeBooleanInput)}
	n.AddInputPort("value", workflow.TypeBoolean, true, nil)
	n.AddOutputPort("value", workflow.TypeBoolean)
	return n, nil
}

func (n *BooleanInputNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"value": workflow.BoolInput(inputs, "value", false)}, nil
}

// MathOperationNode applies a binary arithmetic operation.
type MathOperationNode struct {
	workflow.BaseNode
}

func NewMathOperationNode(def workflow.Definition) (workflow.Node, error) {
	n := &MathOperationNode{BaseNode: workflow.NewBaseNode(def.ID, TypeMathOperation)}
	n.AddInputPort("a", workflow.TypeNumber, true, nil)
	n.AddInputPort("b", workflow.TypeNumber, true, nil)
	n.AddInputPortWithOptions("operation", workflow.TypeString, false, "add",
		[]interface{}{"add", "subtract", "multiply", "divide"})
	n.AddOutputPort("result", workflow.TypeNumber)
	return n, nil
}

func (n *MathOperationNode) Process(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	a := workflow.NumberInput(inputs, "a", 0)
	b := workflow.NumberInput(inputs, "b", 0)

	var result float64
	switch op := workflow.StringInput(inputs, "operation", "add"); op {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		result = a / b
	default:
		return nil, fmt.Errorf("unknown operation '%s'", op)
	}
	return map[string]interface{}{"result": result}, nil
}
