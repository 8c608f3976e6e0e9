package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used throughout the engine.
var (
	// ErrUnknownNodeType is returned when no creator is registered for a node type.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrDuplicateNode is returned when a node id is added to a graph twice.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrValidation tags every graph validation failure.
	ErrValidation = errors.New("graph validation failed")

	// ErrMissingRequiredInput tags failures to satisfy a required input port.
	ErrMissingRequiredInput = errors.New("missing required input")

	// ErrTypeMismatch tags port type mismatches discovered at resolution time.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidItems is returned when a ForEach items input is not an array.
	ErrInvalidItems = errors.New("foreach items must be an array")

	// ErrInvalidSubWorkflow is returned when a ForEach sub-workflow cannot be
	// built or validated before iterating.
	ErrInvalidSubWorkflow = errors.New("invalid sub-workflow")
)

// ValidationError reports a structural problem found by Graph.Validate.
type ValidationError struct {
	// Reason describes the violated invariant.
	Reason string
}

func (e *ValidationError) Error() string {
	return "graph validation failed: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CycleError reports that the graph contains a directed cycle.
type CycleError struct {
	// Nodes are the ids that remained unordered after Kahn's algorithm,
	// i.e. the nodes participating in (or downstream of) a cycle.
	Nodes []string
}

func (e *CycleError) Error() string {
	return "graph validation failed: cycle involving nodes [" + strings.Join(e.Nodes, ", ") + "]"
}

func (e *CycleError) Unwrap() error { return ErrValidation }

// MissingInputError reports a required input port that nothing supplies.
type MissingInputError struct {
	NodeID string
	Port   string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input '%s' on node '%s'", e.Port, e.NodeID)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingRequiredInput }

// TypeMismatchError reports a value whose runtime kind does not match the
// declared port type.
type TypeMismatchError struct {
	NodeID   string
	Port     string
	Expected PortType
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on node '%s' port '%s': expected %s, got %s",
		e.NodeID, e.Port, e.Expected, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

func newTypeMismatch(nodeID, port string, expected PortType, got interface{}) *TypeMismatchError {
	return &TypeMismatchError{
		NodeID:   nodeID,
		Port:     port,
		Expected: expected,
		Got:      fmt.Sprintf("%T", got),
	}
}

// CoercionError reports a failed string -> json/object parse.
type CoercionError struct {
	NodeID string
	Port   string
	Cause  error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("coercion failed on node '%s' port '%s': %v", e.NodeID, e.Port, e.Cause)
}

func (e *CoercionError) Unwrap() error { return e.Cause }

// NodeError wraps a failure raised inside a node's Process call with the
// offending node id.
type NodeError struct {
	NodeID string
	Cause  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node '%s': %v", e.NodeID, e.Cause)
}

func (e *NodeError) Unwrap() error { return e.Cause }

// NewNodeError wraps cause unless it already carries the node id.
func NewNodeError(nodeID string, cause error) error {
	if cause == nil {
		return nil
	}
	var ne *NodeError
	if errors.As(cause, &ne) && ne.NodeID == nodeID {
		return cause
	}
	return &NodeError{NodeID: nodeID, Cause: cause}
}
