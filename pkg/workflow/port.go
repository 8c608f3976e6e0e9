// Package workflow provides the core types for the workflow engine: typed
// ports, the node contract, the node registry, and the graph model.
package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PortType identifies the declared type of a port.
type PortType string

const (
	TypeString  PortType = "string"
	TypeNumber  PortType = "number"
	TypeBoolean PortType = "boolean"
	TypeArray   PortType = "array"
	TypeObject  PortType = "object"
	TypeJSON    PortType = "json"
	TypeAny     PortType = "any"
)

// IsValid reports whether the port type is one of the known types.
func (t PortType) IsValid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject, TypeJSON, TypeAny:
		return true
	}
	return false
}

// normalized folds the json alias onto object. The two are equivalent at runtime.
func (t PortType) normalized() PortType {
	if t == TypeJSON {
		return TypeObject
	}
	return t
}

// PortDescriptor describes a single input or output port on a node.
type PortDescriptor struct {
	// Name is unique within a node's input set and within its output set.
	Name string `json:"name"`
	// Type is the declared port type. TypeAny disables type checking.
	Type PortType `json:"port_type"`
	// Required marks an input port that must be satisfied by a connection,
	// a constant input value, or a default before the node can run.
	Required bool `json:"required"`
	// DefaultValue is used when Required is false and nothing supplies the port.
	DefaultValue interface{} `json:"default_value,omitempty"`
	// Options, when non-empty, restricts the admissible values for the port.
	Options []interface{} `json:"options,omitempty"`
}

// AllowsValue reports whether v is admissible under the Options set.
// An empty Options set admits everything.
func (p PortDescriptor) AllowsValue(v interface{}) bool {
	if len(p.Options) == 0 {
		return true
	}
	for _, opt := range p.Options {
		if valuesEqual(opt, v) {
			return true
		}
	}
	return false
}

// CompatibleTypes reports whether a value produced on a source port may flow
// into a target port. Either side being any disables checking; string sources
// may feed json/object targets (parse-on-read); otherwise types must match.
func CompatibleTypes(source, target PortType) bool {
	if source == TypeAny || target == TypeAny {
		return true
	}
	if source.normalized() == target.normalized() {
		return true
	}
	if source == TypeString && target.normalized() == TypeObject {
		return true
	}
	return false
}

// CoerceValue converts v to the target port type where the model permits it.
// The only implicit coercion is string -> json/object via a JSON parse; a
// failed parse surfaces as a *CoercionError. Any other mismatch between the
// runtime kind of v and the declared type is a *TypeMismatchError.
func CoerceValue(nodeID, port string, target PortType, v interface{}) (interface{}, error) {
	if v == nil || target == TypeAny {
		return v, nil
	}

	switch target.normalized() {
	case TypeString:
		if _, ok := v.(string); !ok {
			return nil, newTypeMismatch(nodeID, port, target, v)
		}
	case TypeNumber:
		if !isNumeric(v) {
			return nil, newTypeMismatch(nodeID, port, target, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return nil, newTypeMismatch(nodeID, port, target, v)
		}
	case TypeArray:
		if _, ok := v.([]interface{}); !ok {
			return nil, newTypeMismatch(nodeID, port, target, v)
		}
	case TypeObject:
		switch val := v.(type) {
		case map[string]interface{}:
			return val, nil
		case string:
			var parsed interface{}
			if err := json.Unmarshal([]byte(val), &parsed); err != nil {
				return nil, &CoercionError{NodeID: nodeID, Port: port, Cause: err}
			}
			return parsed, nil
		default:
			return nil, newTypeMismatch(nodeID, port, target, v)
		}
	}
	return v, nil
}

// AsNumber extracts a float64 from any numeric representation JSON decoding
// or node code may produce.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isNumeric(v interface{}) bool {
	_, ok := AsNumber(v)
	return ok
}

// IsEmptyValue implements the engine-wide emptiness rule shared by Merge and
// PassThrough: nil, empty array, empty object and whitespace-only strings are
// empty. Zero, false and 0.0 are NOT empty.
func IsEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	}
	return false
}

// valuesEqual compares option values loosely enough to survive a JSON
// round trip (numbers arrive as float64).
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := AsNumber(a); ok {
		if bn, ok := AsNumber(b); ok {
			return an == bn
		}
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
