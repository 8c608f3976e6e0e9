package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Definition carries everything a creator needs to build a node instance:
// the id, the registry type name, and the raw constant inputs from the graph
// description. Creators may read constructor parameters (such as a Switch's
// output_count) from Inputs before the engine treats the rest as port values.
type Definition struct {
	ID     string
	Type   string
	Inputs map[string]interface{}
}

// IntParam reads a numeric constructor parameter from the definition inputs.
func (d Definition) IntParam(name string, fallback int) int {
	if v, ok := AsNumber(d.Inputs[name]); ok {
		return int(v)
	}
	return fallback
}

// NodeCreator builds a fresh node instance from a definition.
type NodeCreator func(def Definition) (Node, error)

// TypeInfo describes a registered node type for read-only listing.
type TypeInfo struct {
	Category string `json:"category"`
	Type     string `json:"type"`
}

// Registry maps node type names to creator functions. It is safe for
// concurrent use and is expected to be read-only after service start.
type Registry struct {
	mu       sync.RWMutex
	creators map[string]NodeCreator
	category map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		creators: make(map[string]NodeCreator),
		category: make(map[string]string),
	}
}

// Register registers a creator for a node type. An existing creator for the
// same type is overwritten.
func (r *Registry) Register(typeName, category string, creator NodeCreator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[typeName] = creator
	r.category[typeName] = category
}

// Has reports whether a creator exists for the type.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.creators[typeName]
	return ok
}

// Create materializes a fresh node instance for the definition.
// Returns ErrUnknownNodeType if the type has no registered creator.
func (r *Registry) Create(def Definition) (Node, error) {
	r.mu.RLock()
	creator, ok := r.creators[def.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, def.Type)
	}

	node, err := creator(def)
	if err != nil {
		return nil, fmt.Errorf("failed to create node '%s' (%s): %w", def.ID, def.Type, err)
	}
	return node, nil
}

// List returns all registered types with their categories, sorted by
// category then type name. Used by UIs; read-only.
func (r *Registry) List() []TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]TypeInfo, 0, len(r.creators))
	for t := range r.creators {
		infos = append(infos, TypeInfo{Category: r.category[t], Type: t})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Category != infos[j].Category {
			return infos[i].Category < infos[j].Category
		}
		return infos[i].Type < infos[j].Type
	})
	return infos
}

// Ports builds a throwaway instance of the type and reports its declared
// input and output port descriptors.
func (r *Registry) Ports(typeName string) (inputs, outputs map[string]PortDescriptor, err error) {
	node, err := r.Create(Definition{ID: "introspect", Type: typeName})
	if err != nil {
		return nil, nil, err
	}
	return node.InputPorts(), node.OutputPorts(), nil
}
