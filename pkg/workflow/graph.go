package workflow

import (
	"fmt"
	"sort"
)

// Connection routes one node's output port to another node's input port.
type Connection struct {
	FromNode string `json:"from_node"`
	FromPort string `json:"from_port"`
	ToNode   string `json:"to_node"`
	ToPort   string `json:"to_port"`
}

// key identifies a connection for 4-tuple deduplication.
func (c Connection) key() string {
	return c.FromNode + "\x00" + c.FromPort + "\x00" + c.ToNode + "\x00" + c.ToPort
}

// Target identifies an input port slot on a node.
type Target struct {
	Node string
	Port string
}

// Source identifies an output port slot on a node.
type Source struct {
	Node string
	Port string
}

// Graph is a directed acyclic collection of nodes and connections.
// Build it with AddNode/AddConnection, then call Validate before execution.
type Graph struct {
	nodes       map[string]Node
	connections []Connection
	seen        map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		seen:  make(map[string]struct{}),
	}
}

// AddNode adds a node. Returns ErrDuplicateNode when the id is taken.
func (g *Graph) AddNode(n Node) error {
	if _, exists := g.nodes[n.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID())
	}
	g.nodes[n.ID()] = n
	return nil
}

// AddConnection appends a connection. Exact duplicates (same 4-tuple) are
// silently dropped; order is preserved but non-semantic.
func (g *Graph) AddConnection(c Connection) {
	if _, dup := g.seen[c.key()]; dup {
		return
	}
	g.seen[c.key()] = struct{}{}
	g.connections = append(g.connections, c)
}

// Node returns the node for the id, or nil.
func (g *Graph) Node(id string) Node { return g.nodes[id] }

// Nodes returns the node map keyed by id.
func (g *Graph) Nodes() map[string]Node { return g.nodes }

// Connections returns the connection list.
func (g *Graph) Connections() []Connection { return g.connections }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Validate checks every structural invariant: connection endpoints exist and
// have the right direction, at most one connection targets a given input
// slot, port types are compatible, and the graph is acyclic.
func (g *Graph) Validate() error {
	targets := make(map[Target]Connection, len(g.connections))

	for _, c := range g.connections {
		from, ok := g.nodes[c.FromNode]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("connection source node '%s' does not exist", c.FromNode)}
		}
		to, ok := g.nodes[c.ToNode]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("connection target node '%s' does not exist", c.ToNode)}
		}

		srcPort, ok := from.OutputPorts()[c.FromPort]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("output port '%s' not found on node '%s'", c.FromPort, c.FromNode)}
		}
		dstPort, ok := to.InputPorts()[c.ToPort]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("input port '%s' not found on node '%s'", c.ToPort, c.ToNode)}
		}

		slot := Target{Node: c.ToNode, Port: c.ToPort}
		if prev, dup := targets[slot]; dup {
			return &ValidationError{Reason: fmt.Sprintf(
				"input '%s.%s' is targeted by both '%s.%s' and '%s.%s'",
				c.ToNode, c.ToPort, prev.FromNode, prev.FromPort, c.FromNode, c.FromPort)}
		}
		targets[slot] = c

		if !CompatibleTypes(srcPort.Type, dstPort.Type) {
			return &ValidationError{Reason: fmt.Sprintf(
				"incompatible port types: %s.%s (%s) -> %s.%s (%s)",
				c.FromNode, c.FromPort, srcPort.Type, c.ToNode, c.ToPort, dstPort.Type)}
		}
	}

	if cyclic := g.cycleNodes(); len(cyclic) > 0 {
		return &CycleError{Nodes: cyclic}
	}
	return nil
}

// InDegrees returns the number of distinct upstream dependencies per node.
// Parallel edges from the same upstream node count once.
func (g *Graph) InDegrees() map[string]int {
	degrees := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		degrees[id] = 0
	}
	for to, ups := range g.predecessors() {
		degrees[to] = len(ups)
	}
	return degrees
}

// Sources returns the ids of nodes with no upstream dependencies, sorted for
// deterministic iteration.
func (g *Graph) Sources() []string {
	var sources []string
	for id, deg := range g.InDegrees() {
		if deg == 0 {
			sources = append(sources, id)
		}
	}
	sort.Strings(sources)
	return sources
}

// Successors returns, per node, the set of distinct downstream node ids.
func (g *Graph) Successors() map[string][]string {
	seen := make(map[string]map[string]struct{})
	for _, c := range g.connections {
		if seen[c.FromNode] == nil {
			seen[c.FromNode] = make(map[string]struct{})
		}
		seen[c.FromNode][c.ToNode] = struct{}{}
	}
	out := make(map[string][]string, len(seen))
	for from, tos := range seen {
		ids := make([]string, 0, len(tos))
		for to := range tos {
			ids = append(ids, to)
		}
		sort.Strings(ids)
		out[from] = ids
	}
	return out
}

// TargetIndex precomputes the reverse connection index
// (toNode, toPort) -> (fromNode, fromPort) for O(1) port resolution.
// Call after Validate; duplicate targets have already been rejected.
func (g *Graph) TargetIndex() map[Target]Source {
	index := make(map[Target]Source, len(g.connections))
	for _, c := range g.connections {
		index[Target{Node: c.ToNode, Port: c.ToPort}] = Source{Node: c.FromNode, Port: c.FromPort}
	}
	return index
}

// predecessors returns, per node, the set of distinct upstream node ids.
func (g *Graph) predecessors() map[string]map[string]struct{} {
	preds := make(map[string]map[string]struct{})
	for _, c := range g.connections {
		if preds[c.ToNode] == nil {
			preds[c.ToNode] = make(map[string]struct{})
		}
		preds[c.ToNode][c.FromNode] = struct{}{}
	}
	return preds
}

// cycleNodes runs Kahn's algorithm and returns the nodes it could not order,
// sorted. An empty result means the graph is acyclic.
func (g *Graph) cycleNodes() []string {
	degrees := g.InDegrees()
	succ := g.Successors()

	queue := make([]string, 0, len(degrees))
	for id, deg := range degrees {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	ordered := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered++
		for _, next := range succ[id] {
			degrees[next]--
			if degrees[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if ordered == len(g.nodes) {
		return nil
	}
	var cyclic []string
	for id, deg := range degrees {
		if deg > 0 {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	return cyclic
}
