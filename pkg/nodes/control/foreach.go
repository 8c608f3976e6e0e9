package control

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	"github.com/wehubfusion/Daedalus/pkg/engine"
	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// TypeForEach is the registry name of the fan-out node.
const TypeForEach = "foreach"

// defaultMaxWorkers caps parallel fan-out when max_workers is omitted.
const defaultMaxWorkers = 64

// SubgraphRunner executes a materialized sub-graph under ctx and returns the
// finished run context. Cancellation chains through ctx: a sub-run started
// from a node's Process inherits the parent run's cancellation signal.
type SubgraphRunner interface {
	Run(ctx context.Context, graph *workflow.Graph) (*engine.RunContext, error)
}

// ForEachNode materializes and executes its sub_workflow once per element of
// items. Every iteration gets fresh node instances, the current item, index
// and global_vars injected into nodes declaring the injection ports, and a
// child run chained to the parent's cancellation.
//
// Partial failure never fails the outer node: whatever the iterations
// accumulated is reported through the counting and errors outputs, and with
// continue_on_error unset a failed iteration merely stops further fan-out.
type ForEachNode struct {
	workflow.BaseNode
	registry *workflow.Registry
	runner   SubgraphRunner
}

// NewForEachNode creates a ForEach bound to the registry that materializes
// sub-graphs and the runner that executes them.
func NewForEachNode(def workflow.Definition, registry *workflow.Registry, runner SubgraphRunner) (workflow.Node, error) {
	if registry == nil || runner == nil {
		return nil, fmt.Errorf("foreach node requires a registry and a runner")
	}
	n := &ForEachNode{
		BaseNode: workflow.NewBaseNode(def.ID, TypeForEach),
		registry: registry,
		runner:   runner,
	}
	// items stays TypeAny so a non-array value reaches Process and fails with
	// ErrInvalidItems instead of a generic port type mismatch.
	n.AddInputPort("items", workflow.TypeAny, true, nil)
	n.AddInputPort("sub_workflow", workflow.TypeJSON, true, nil)
	n.AddInputPort("result_node_id", workflow.TypeString, true, nil)
	n.AddInputPort("result_port_name", workflow.TypeString, true, nil)
	n.AddInputPort("parallel", workflow.TypeBoolean, false, false)
	n.AddInputPort("max_workers", workflow.TypeNumber, false, nil)
	n.AddInputPort("continue_on_error", workflow.TypeBoolean, false, false)
	n.AddInputPort("max_iterations", workflow.TypeNumber, false, nil)
	n.AddInputPort("global_vars", workflow.TypeObject, false, nil)

	n.AddOutputPort("results", workflow.TypeArray)
	n.AddOutputPort("sub_workflow_results", workflow.TypeArray)
	n.AddOutputPort("item_value", workflow.TypeAny)
	n.AddOutputPort("current_index", workflow.TypeNumber)
	n.AddOutputPort("total_count", workflow.TypeNumber)
	n.AddOutputPort("success_count", workflow.TypeNumber)
	n.AddOutputPort("error_count", workflow.TypeNumber)
	n.AddOutputPort("errors", workflow.TypeArray)
	return n, nil
}

// fanout carries the per-invocation parameters shared by all iterations.
type fanout struct {
	node            *ForEachNode
	def             *workflow.GraphDefinition
	globals         map[string]interface{}
	resultNodeID    string
	resultPort      string
	continueOnError bool
}

// iteration holds the outcome slot for one index. Each slot is written by at
// most one goroutine; aggregation happens after all workers join.
type iteration struct {
	attempted bool
	item      interface{}
	value     interface{}
	snapshot  map[string]map[string]interface{}
	err       error
	partial   map[string]map[string]interface{}
}

// Process runs the fan-out.
func (n *ForEachNode) Process(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	items, ok := inputs["items"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got %T", workflow.ErrInvalidItems, inputs["items"])
	}

	subDef, err := workflow.DefinitionFromValue(inputs["sub_workflow"])
	if err != nil {
		return nil, err
	}
	// Validated once up front; per-iteration materializations re-use the
	// description, never node instances.
	plan, err := subDef.Build(n.registry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrInvalidSubWorkflow, err)
	}

	resultNodeID := workflow.StringInput(inputs, "result_node_id", "")
	resultPort := workflow.StringInput(inputs, "result_port_name", "")
	resultNode := plan.Node(resultNodeID)
	if resultNode == nil {
		return nil, fmt.Errorf("%w: result node '%s' not found", workflow.ErrInvalidSubWorkflow, resultNodeID)
	}
	if _, ok := resultNode.OutputPorts()[resultPort]; !ok {
		return nil, fmt.Errorf("%w: node '%s' declares no output port '%s'",
			workflow.ErrInvalidSubWorkflow, resultNodeID, resultPort)
	}

	count := len(items)
	if max, ok := workflow.AsNumber(inputs["max_iterations"]); ok && int(max) < count {
		count = int(max)
		if count < 0 {
			count = 0
		}
	}

	globals, _ := inputs["global_vars"].(map[string]interface{})
	f := &fanout{
		node:            n,
		def:             subDef,
		globals:         globals,
		resultNodeID:    resultNodeID,
		resultPort:      resultPort,
		continueOnError: workflow.BoolInput(inputs, "continue_on_error", false),
	}

	slots := make([]iteration, count)
	if workflow.BoolInput(inputs, "parallel", false) {
		f.runParallel(ctx, items, slots, n.workerCap(inputs, count))
	} else {
		f.runSerial(ctx, items, slots)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return aggregate(slots, count), nil
}

func (n *ForEachNode) workerCap(inputs map[string]interface{}, count int) int {
	if v, ok := workflow.AsNumber(inputs["max_workers"]); ok && int(v) > 0 {
		return int(v)
	}
	if count < defaultMaxWorkers {
		return count
	}
	return defaultMaxWorkers
}

func (f *fanout) runSerial(ctx context.Context, items []interface{}, slots []iteration) {
	for i := range slots {
		if ctx.Err() != nil {
			return
		}
		f.runOne(ctx, i, items[i], &slots[i])
		if slots[i].err != nil && !f.continueOnError {
			return
		}
	}
}

func (f *fanout) runParallel(ctx context.Context, items []interface{}, slots []iteration, maxWorkers int) {
	limiter := concurrency.NewLimiter(maxWorkers)
	var wg sync.WaitGroup
	var aborted int32

	// Slots are acquired in ascending index order, so iteration start order
	// is deterministic even though completion order is not.
	for i := range slots {
		if atomic.LoadInt32(&aborted) != 0 {
			break
		}
		if err := limiter.Acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer limiter.Release()
			f.runOne(ctx, i, items[i], &slots[i])
			if slots[i].err != nil && !f.continueOnError {
				atomic.StoreInt32(&aborted, 1)
			}
		}(i)
	}
	wg.Wait()
}

// runOne materializes a fresh sub-graph, injects the iteration values and
// executes it under a child run.
func (f *fanout) runOne(ctx context.Context, index int, item interface{}, slot *iteration) {
	slot.attempted = true
	slot.item = item

	graph, err := f.materialize(index, item)
	if err != nil {
		slot.err = err
		return
	}

	run, err := f.node.runner.Run(ctx, graph)
	if run != nil && err != nil {
		slot.partial = run.Results().Snapshot()
	}
	if err != nil {
		slot.err = err
		return
	}

	slot.snapshot = run.Results().Snapshot()
	slot.value, _ = run.Results().Output(f.resultNodeID, f.resultPort)
}

// materialize builds fresh node instances from the description and overwrites
// the injection ports of every node that declares them.
func (f *fanout) materialize(index int, item interface{}) (*workflow.Graph, error) {
	graph, err := f.def.Build(f.node.registry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrInvalidSubWorkflow, err)
	}
	for _, node := range graph.Nodes() {
		ports := node.InputPorts()
		if _, ok := ports[workflow.PortForEachItem]; ok {
			node.SetInputValue(workflow.PortForEachItem, item)
		}
		if _, ok := ports[workflow.PortForEachIndex]; ok {
			node.SetInputValue(workflow.PortForEachIndex, float64(index))
		}
		if _, ok := ports[workflow.PortForEachGlobalVars]; ok {
			node.SetInputValue(workflow.PortForEachGlobalVars, f.globals)
		}
	}
	return graph, nil
}

// aggregate folds the iteration slots into the node outputs. Successful
// results are compacted in ascending index order.
func aggregate(slots []iteration, count int) map[string]interface{} {
	results := make([]interface{}, 0, count)
	subResults := make([]interface{}, 0, count)
	errList := make([]interface{}, 0)
	successes, failures := 0, 0
	lastIndex := -1
	var lastItem interface{}

	for i := range slots {
		if !slots[i].attempted {
			continue
		}
		lastIndex = i
		lastItem = slots[i].item

		if slots[i].err != nil {
			failures++
			entry := map[string]interface{}{
				"index": float64(i),
				"item":  slots[i].item,
				"error": slots[i].err.Error(),
			}
			if slots[i].partial != nil {
				entry["partial_results"] = resultsValue(slots[i].partial)
			}
			errList = append(errList, entry)
			continue
		}

		successes++
		results = append(results, slots[i].value)
		subResults = append(subResults, map[string]interface{}{
			"index":   float64(i),
			"results": resultsValue(slots[i].snapshot),
		})
	}

	return map[string]interface{}{
		"results":              results,
		"sub_workflow_results": subResults,
		"item_value":           lastItem,
		"current_index":        float64(lastIndex),
		"total_count":          float64(count),
		"success_count":        float64(successes),
		"error_count":          float64(failures),
		"errors":               errList,
	}
}

// resultsValue converts a result-store snapshot into plain nested maps so the
// output round-trips through JSON.
func resultsValue(snapshot map[string]map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(snapshot))
	for nodeID, ports := range snapshot {
		out[nodeID] = ports
	}
	return out
}
