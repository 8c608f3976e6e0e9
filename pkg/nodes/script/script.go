// Package script implements the JavaScript expression node. Scripts run in a
// restricted goja VM with the resolved input exposed as the `input` global;
// the script's final expression value becomes the node's result.
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// TypeScript is the registry name of the script node.
const TypeScript = "script"

// Category groups the script node in registry listings.
const Category = "script"

// defaultTimeout bounds script execution when timeout_ms is omitted.
const defaultTimeout = 10 * time.Second

// Node-global names the VM must not expose.
var blockedGlobals = []string{
	"require", "module", "exports", "process", "global",
	"__dirname", "__filename", "Buffer", "setImmediate", "clearImmediate",
}

// Register registers the script node type.
func Register(reg *workflow.Registry) {
	reg.Register(TypeScript, Category, NewScriptNode)
}

// ScriptNode evaluates a JavaScript snippet against its input.
type ScriptNode struct {
	workflow.BaseNode
}

func NewScriptNode(def workflow.Definition) (workflow.Node, error) {
	n := &ScriptNode{BaseNode: workflow.NewBaseNode(def.ID, TypeScript)}
	n.AddInputPort("code", workflow.TypeString, true, nil)
	n.AddInputPort("input", workflow.TypeAny, false, nil)
	n.AddInputPort("timeout_ms", workflow.TypeNumber, false, nil)
	n.AddOutputPort("result", workflow.TypeAny)
	return n, nil
}

// Process runs the script. The VM is interrupted when ctx is cancelled or
// the timeout elapses.
func (n *ScriptNode) Process(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	code := workflow.StringInput(inputs, "code", "")
	if code == "" {
		return nil, fmt.Errorf("code must not be empty")
	}

	timeout := defaultTimeout
	if ms, ok := workflow.AsNumber(inputs["timeout_ms"]); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	vm := goja.New()
	for _, name := range blockedGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return nil, fmt.Errorf("failed to prepare vm: %w", err)
		}
	}
	if err := vm.Set("input", inputs["input"]); err != nil {
		return nil, fmt.Errorf("failed to bind input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt("script interrupted")
		case <-watchdogDone:
		}
	}()

	value, err := vm.RunString(code)
	if err != nil {
		if runCtx.Err() != nil {
			return nil, runCtx.Err()
		}
		return nil, fmt.Errorf("script failed: %w", err)
	}
	return map[string]interface{}{"result": normalize(value.Export())}, nil
}

// normalize folds goja export types onto the engine's JSON value model.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	}
	return v
}
