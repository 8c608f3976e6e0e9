package service

import (
	"fmt"
	"sort"

	"github.com/wehubfusion/Daedalus/pkg/nodes/control"
	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// ValidationRequest describes a ForEach sub-workflow to check on behalf of a
// UI, before any run references it.
type ValidationRequest struct {
	Nodes          map[string]workflow.NodeDefinition `json:"nodes"`
	Connections    []workflow.Connection              `json:"connections"`
	ResultNodeID   string                             `json:"result_node_id"`
	ResultPortName string                             `json:"result_port_name"`
}

// ValidationReport lists everything wrong (errors) or suspicious (warnings)
// about a sub-workflow. Valid is true iff Errors is empty.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateSubWorkflow checks a sub-workflow without executing it: unknown
// node types, the missing ForEachItem entry node, a missing or mismatched
// result node and port, structural problems including cycles, and orphan
// nodes as warnings.
func (m *Manager) ValidateSubWorkflow(req ValidationRequest) ValidationReport {
	report := ValidationReport{Errors: []string{}, Warnings: []string{}}

	if len(req.Nodes) == 0 {
		report.Errors = append(report.Errors, "sub-workflow has no nodes")
		return report
	}

	ids := make([]string, 0, len(req.Nodes))
	for id := range req.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hasEntry := false
	typesKnown := true
	for _, id := range ids {
		def := req.Nodes[id]
		if !m.registry.Has(def.Type) {
			report.Errors = append(report.Errors,
				fmt.Sprintf("node '%s' has unknown type '%s'", id, def.Type))
			typesKnown = false
			continue
		}
		if def.Type == control.TypeForEachItem {
			hasEntry = true
		}
	}
	if !hasEntry {
		report.Errors = append(report.Errors,
			fmt.Sprintf("sub-workflow has no '%s' entry node", control.TypeForEachItem))
	}

	m.checkResultBinding(req, &report)

	// Structural validation needs every type resolvable.
	if typesKnown {
		def := workflow.GraphDefinition{Nodes: req.Nodes, Connections: req.Connections}
		if _, err := def.Build(m.registry); err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
	}

	m.checkOrphans(req, ids, &report)

	report.Valid = len(report.Errors) == 0
	return report
}

func (m *Manager) checkResultBinding(req ValidationRequest, report *ValidationReport) {
	if req.ResultNodeID == "" {
		report.Errors = append(report.Errors, "result_node_id is required")
		return
	}
	def, ok := req.Nodes[req.ResultNodeID]
	if !ok {
		report.Errors = append(report.Errors,
			fmt.Sprintf("result node '%s' does not exist", req.ResultNodeID))
		return
	}
	if req.ResultPortName == "" {
		report.Errors = append(report.Errors, "result_port_name is required")
		return
	}
	if !m.registry.Has(def.Type) {
		// Already reported as an unknown type.
		return
	}
	_, outputs, err := m.registry.Ports(def.Type)
	if err != nil {
		report.Errors = append(report.Errors,
			fmt.Sprintf("cannot introspect type '%s': %v", def.Type, err))
		return
	}
	if _, ok := outputs[req.ResultPortName]; !ok {
		report.Errors = append(report.Errors,
			fmt.Sprintf("node '%s' (%s) declares no output port '%s'",
				req.ResultNodeID, def.Type, req.ResultPortName))
	}
}

// checkOrphans flags nodes no connection touches. A single-node sub-workflow
// is legitimate, so it is exempt.
func (m *Manager) checkOrphans(req ValidationRequest, ids []string, report *ValidationReport) {
	if len(ids) <= 1 {
		return
	}
	connected := make(map[string]struct{}, len(ids))
	for _, c := range req.Connections {
		connected[c.FromNode] = struct{}{}
		connected[c.ToNode] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := connected[id]; !ok {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("node '%s' has no connections", id))
		}
	}
}
