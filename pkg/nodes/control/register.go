package control

import "github.com/wehubfusion/Daedalus/pkg/workflow"

// Category groups the control node types in registry listings.
const Category = "control"

// Register registers all control node types. The ForEach creator closes over
// the registry itself so sub-workflows may reference any registered type,
// including nested ForEach.
func Register(reg *workflow.Registry, runner SubgraphRunner) {
	reg.Register(TypeForEachItem, Category, NewForEachItemNode)
	reg.Register(TypeSwitch, Category, NewSwitchNode)
	reg.Register(TypeMerge, Category, NewMergeNode)
	reg.Register(TypePassThrough, Category, NewPassThroughNode)
	reg.Register(TypeForEach, Category, func(def workflow.Definition) (workflow.Node, error) {
		return NewForEachNode(def, reg, runner)
	})
}
