package engine

import (
	"fmt"
	"sort"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// ResolveInputs computes the effective inputs for a node from the precedence
// chain: connected upstream output, then constant input value, then declared
// default, then absent. A required port left unsatisfied fails resolution;
// defaults apply only to optional ports. Every resolved value is checked
// against the port's declared type and, when set, its options list.
func ResolveInputs(node workflow.Node, targets map[workflow.Target]workflow.Source, store *ResultStore) (map[string]interface{}, error) {
	ports := node.InputPorts()
	inputs := make(map[string]interface{}, len(ports))

	// Deterministic port order keeps the first-reported error stable.
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		port := ports[name]

		value, satisfied := lookupValue(node, name, targets, store)
		if !satisfied {
			if port.Required {
				return nil, &workflow.MissingInputError{NodeID: node.ID(), Port: name}
			}
			if port.DefaultValue != nil {
				value = port.DefaultValue
			} else {
				// Optional and unsatisfied: the key stays absent.
				continue
			}
		}

		coerced, err := workflow.CoerceValue(node.ID(), name, port.Type, value)
		if err != nil {
			return nil, err
		}
		if !port.AllowsValue(coerced) {
			return nil, fmt.Errorf("%w: value %v is not an allowed option for '%s.%s'",
				workflow.ErrTypeMismatch, coerced, node.ID(), name)
		}
		inputs[name] = coerced
	}
	return inputs, nil
}

// lookupValue applies the first two precedence steps: a connection whose
// upstream produced the source port wins over a constant input value.
func lookupValue(node workflow.Node, portName string, targets map[workflow.Target]workflow.Source, store *ResultStore) (interface{}, bool) {
	if src, connected := targets[workflow.Target{Node: node.ID(), Port: portName}]; connected {
		if v, ok := store.Output(src.Node, src.Port); ok {
			return v, true
		}
		// Connected but the upstream emitted nothing on that port: fall
		// through to the constant, then the default.
	}
	if v, ok := node.InputValues()[portName]; ok {
		return v, true
	}
	return nil, false
}
