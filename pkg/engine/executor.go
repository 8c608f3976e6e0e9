package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wehubfusion/Daedalus/pkg/logging"
	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

const tracerName = "github.com/wehubfusion/Daedalus/pkg/engine"

// completion is the message a node goroutine sends back to the scheduler loop.
type completion struct {
	nodeID  string
	outputs map[string]interface{}
	err     error
}

// Executor runs validated graphs with level-parallel scheduling: every node
// whose distinct upstream dependencies have completed is dispatched
// concurrently, the loop blocks on the next completion, and newly unblocked
// nodes join the frontier. The first failure cancels the run; remaining
// in-flight nodes drain and their outputs are discarded.
//
// An Executor holds no per-run state, so one instance may drive any number of
// runs (including nested ForEach sub-runs) concurrently.
type Executor struct {
	logger logging.Logger
	tracer trace.Tracer
}

// NewExecutor creates an executor. A nil logger disables logging.
func NewExecutor(logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Executor{
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Run executes the graph under a fresh run context derived from ctx and
// returns it. The returned context carries the result store, per-node
// statuses and the run error, if any.
func (e *Executor) Run(ctx context.Context, graph *workflow.Graph) (*RunContext, error) {
	run := NewRunContext(ctx)
	err := e.Execute(run, graph)
	return run, err
}

// RunSubgraph executes the graph under a child of parent, so that cancelling
// the parent cancels the sub-run. Used by ForEach iterations.
func (e *Executor) RunSubgraph(parent *RunContext, graph *workflow.Graph) (*RunContext, error) {
	child := parent.NewChild()
	err := e.Execute(child, graph)
	return child, err
}

// Execute runs the graph to completion under run. It returns nil when every
// node completed, the first surfaced node error on failure, or the context
// error when the run was cancelled. Execute must be called at most once per
// RunContext.
func (e *Executor) Execute(run *RunContext, graph *workflow.Graph) error {
	if err := graph.Validate(); err != nil {
		run.setStatus(StatusError)
		return err
	}

	ctx, span := e.tracer.Start(run.Context(), "engine.run",
		trace.WithAttributes(
			attribute.String("run.id", run.RunID()),
			attribute.Int("run.nodes", graph.Len()),
		))
	defer span.End()

	run.setStatus(StatusRunning)
	for id := range graph.Nodes() {
		run.setNodeStatus(id, NodePending)
	}

	e.logger.Info("run started",
		logging.Field{Key: "runID", Value: run.RunID()},
		logging.Field{Key: "nodes", Value: graph.Len()})

	degrees := graph.InDegrees()
	successors := graph.Successors()
	targets := graph.TargetIndex()
	store := run.Results()

	completions := make(chan completion)
	ready := graph.Sources()
	inflight := 0
	halted := false

	for {
		for !halted && len(ready) > 0 {
			id := ready[0]
			ready = ready[1:]

			if run.Context().Err() != nil {
				halted = true
				break
			}

			node := graph.Node(id)
			inputs, err := ResolveInputs(node, targets, store)
			if err != nil {
				e.failNode(run, span, id, err)
				halted = true
				break
			}

			inflight++
			run.markStarted(id)
			go e.process(ctx, run, node, inputs, completions)
		}

		if inflight == 0 {
			break
		}

		c := <-completions
		inflight--

		switch {
		case c.err != nil:
			e.failNode(run, span, c.nodeID, c.err)
			halted = true

		case halted:
			// The run already failed or was cancelled: the node finished,
			// but its outputs do not enter the store.
			run.markFinished(c.nodeID, NodeDone)

		default:
			if err := store.Set(c.nodeID, c.outputs); err != nil {
				e.failNode(run, span, c.nodeID, err)
				halted = true
				continue
			}
			run.markFinished(c.nodeID, NodeDone)
			e.logger.Debug("node completed",
				logging.Field{Key: "runID", Value: run.RunID()},
				logging.Field{Key: "nodeID", Value: c.nodeID})

			for _, next := range successors[c.nodeID] {
				degrees[next]--
				if degrees[next] == 0 {
					ready = append(ready, next)
				}
			}
		}
	}

	// Nodes never dispatched stay behind as skipped.
	for id, status := range run.NodeStatuses() {
		if status == NodePending {
			run.setNodeStatus(id, NodeSkipped)
		}
	}

	return e.finish(run, span)
}

// process invokes one node and reports its completion. Panics inside a node
// surface as node failures rather than killing the scheduler.
func (e *Executor) process(ctx context.Context, run *RunContext, node workflow.Node, inputs map[string]interface{}, completions chan<- completion) {
	nodeCtx, span := e.tracer.Start(ctx, "engine.node",
		trace.WithAttributes(
			attribute.String("node.id", node.ID()),
			attribute.String("node.type", node.Type()),
		))
	defer span.End()

	var outputs map[string]interface{}
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in node '%s': %v", node.ID(), r)
			}
		}()
		outputs, err = node.Process(nodeCtx, inputs)
	}()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	completions <- completion{nodeID: node.ID(), outputs: outputs, err: err}
}

// failNode marks a node failed, records the first run error and trips the
// cancellation signal so in-flight siblings stop. Failures caused by a cancel
// already in progress, whether requested on this run or inherited through the
// parent context, do not become the run error.
func (e *Executor) failNode(run *RunContext, span trace.Span, nodeID string, cause error) {
	run.markFinished(nodeID, NodeFailed)

	if isCancellation(cause) && run.Context().Err() != nil {
		return
	}
	if run.recordFailure(nodeID, cause) {
		span.RecordError(cause)
		e.logger.Error("node failed",
			logging.Field{Key: "runID", Value: run.RunID()},
			logging.Field{Key: "nodeID", Value: nodeID},
			logging.Field{Key: "error", Value: cause.Error()})
	}
	run.tripCancel()
}

// finish settles the terminal status and return value of the run.
func (e *Executor) finish(run *RunContext, span trace.Span) error {
	if runErr := run.Err(); runErr != nil {
		run.setStatus(StatusError)
		span.SetStatus(codes.Error, runErr.Error())
		e.logger.Error("run failed",
			logging.Field{Key: "runID", Value: run.RunID()},
			logging.Field{Key: "error", Value: runErr.Error()})
		return runErr
	}
	if run.CancelRequested() || run.Context().Err() != nil {
		run.setStatus(StatusCancelled)
		span.SetStatus(codes.Error, "cancelled")
		e.logger.Info("run cancelled",
			logging.Field{Key: "runID", Value: run.RunID()})
		return context.Canceled
	}
	run.setStatus(StatusCompleted)
	e.logger.Info("run completed",
		logging.Field{Key: "runID", Value: run.RunID()},
		logging.Field{Key: "results", Value: run.Results().Len()})
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
