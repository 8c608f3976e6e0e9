package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
)

// GraphDefinition is the JSON description of a graph, consumed from clients
// and persisted externally. The same shape is embedded as a ForEach
// sub_workflow input value.
type GraphDefinition struct {
	Nodes       map[string]NodeDefinition `json:"nodes"`
	Connections []Connection              `json:"connections"`
}

// NodeDefinition describes one node in a graph definition. Saved files use
// either "inputs" or "input_values" for constants; both are accepted.
type NodeDefinition struct {
	Type        string                 `json:"type"`
	Inputs      map[string]interface{} `json:"inputs,omitempty"`
	InputValues map[string]interface{} `json:"input_values,omitempty"`
}

// EffectiveInputs merges the two accepted constant-input aliases.
// When both are present, "inputs" wins per key.
func (d NodeDefinition) EffectiveInputs() map[string]interface{} {
	if d.InputValues == nil {
		return d.Inputs
	}
	merged := make(map[string]interface{}, len(d.InputValues)+len(d.Inputs))
	for k, v := range d.InputValues {
		merged[k] = v
	}
	for k, v := range d.Inputs {
		merged[k] = v
	}
	return merged
}

// ParseGraphDefinition decodes a graph definition from JSON bytes.
func ParseGraphDefinition(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse graph definition: %w", err)
	}
	return &def, nil
}

// DefinitionFromValue converts an already-decoded JSON value (a map, or a
// string holding JSON) into a GraphDefinition. Used for ForEach sub_workflow
// inputs that arrive embedded in another document.
func DefinitionFromValue(v interface{}) (*GraphDefinition, error) {
	switch val := v.(type) {
	case *GraphDefinition:
		return val, nil
	case GraphDefinition:
		return &val, nil
	case string:
		return ParseGraphDefinition([]byte(val))
	case map[string]interface{}:
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode sub-workflow: %w", err)
		}
		return ParseGraphDefinition(raw)
	}
	return nil, fmt.Errorf("%w: unsupported sub-workflow value of type %T", ErrInvalidSubWorkflow, v)
}

// Build materializes the definition into a validated Graph using the
// registry. Node ids are taken from the definition's node map keys.
func (d *GraphDefinition) Build(registry *Registry) (*Graph, error) {
	graph := NewGraph()

	// Deterministic build order keeps error messages stable.
	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		nodeDef := d.Nodes[id]
		inputs := nodeDef.EffectiveInputs()

		node, err := registry.Create(Definition{ID: id, Type: nodeDef.Type, Inputs: inputs})
		if err != nil {
			return nil, err
		}
		for port, value := range inputs {
			node.SetInputValue(port, value)
		}
		if err := graph.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, c := range d.Connections {
		graph.AddConnection(c)
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}
