// Package nodes assembles the built-in node library.
package nodes

import (
	"github.com/wehubfusion/Daedalus/pkg/nodes/control"
	"github.com/wehubfusion/Daedalus/pkg/nodes/data"
	"github.com/wehubfusion/Daedalus/pkg/nodes/math"
	"github.com/wehubfusion/Daedalus/pkg/nodes/script"
	"github.com/wehubfusion/Daedalus/pkg/nodes/text"
	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// NewRegistry creates a registry with every built-in node type registered.
// The runner executes ForEach sub-graphs; pass the engine executor.
func NewRegistry(runner control.SubgraphRunner) *workflow.Registry {
	reg := workflow.NewRegistry()
	control.Register(reg, runner)
	text.Register(reg)
	math.Register(reg)
	data.Register(reg)
	script.Register(reg)
	return reg
}
