// Package engine implements the graph scheduler: topological level-parallel
// dispatch, port resolution, failure propagation and cooperative
// cancellation, plus the per-run result store.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
	StatusCancelled RunStatus = "cancelled"
)

// NodeStatus is the lifecycle state of a single node within a run.
type NodeStatus string

const (
	NodePending NodeStatus = "pending"
	NodeRunning NodeStatus = "running"
	NodeDone    NodeStatus = "done"
	NodeFailed  NodeStatus = "failed"
	NodeSkipped NodeStatus = "skipped"
)

// RunError is the first-surfaced failure of a run: the offending node id and
// the original cause.
type RunError struct {
	NodeID string
	Cause  error
}

func (e *RunError) Error() string {
	return "node '" + e.NodeID + "' failed: " + e.Cause.Error()
}

func (e *RunError) Unwrap() error { return e.Cause }

// NodeTiming records when a node started and finished within a run.
// Used for observability and for verifying scheduling order.
type NodeTiming struct {
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunContext carries the identity, state machine, result store and
// cancellation signal of one run. A top-level run owns one RunContext; each
// ForEach iteration runs under a child RunContext whose cancellation chains
// to the parent's.
type RunContext struct {
	runID  string
	ctx    context.Context
	cancel context.CancelFunc
	store  *ResultStore

	mu              sync.RWMutex
	status          RunStatus
	nodeStatus      map[string]NodeStatus
	timings         map[string]NodeTiming
	err             *RunError
	cancelRequested bool
}

// NewRunContext creates a fresh run context derived from ctx.
func NewRunContext(ctx context.Context) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	return &RunContext{
		runID:      uuid.NewString(),
		ctx:        runCtx,
		cancel:     cancel,
		store:      NewResultStore(),
		status:     StatusPending,
		nodeStatus: make(map[string]NodeStatus),
		timings:    make(map[string]NodeTiming),
	}
}

// NewChild creates a child run context whose cancellation signal trips when
// the parent's does.
func (r *RunContext) NewChild() *RunContext {
	return NewRunContext(r.ctx)
}

// RunID returns the opaque run identifier.
func (r *RunContext) RunID() string { return r.runID }

// Context returns the run's cancellable context, observed by the scheduler
// loop and passed into every node's Process.
func (r *RunContext) Context() context.Context { return r.ctx }

// Results returns the run's result store.
func (r *RunContext) Results() *ResultStore { return r.store }

// Cancel requests cooperative cancellation. Idempotent: the first call trips
// the signal, later calls are no-ops.
func (r *RunContext) Cancel() {
	r.mu.Lock()
	r.cancelRequested = true
	r.mu.Unlock()
	r.cancel()
}

// CancelRequested reports whether an external cancel was requested.
func (r *RunContext) CancelRequested() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cancelRequested
}

// tripCancel cancels the run context without marking an external request.
// Used by the scheduler on node failure.
func (r *RunContext) tripCancel() { r.cancel() }

// Status returns the run status.
func (r *RunContext) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *RunContext) setStatus(s RunStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// NodeStatuses returns a copy of the per-node status map.
func (r *RunContext) NodeStatuses() map[string]NodeStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]NodeStatus, len(r.nodeStatus))
	for k, v := range r.nodeStatus {
		out[k] = v
	}
	return out
}

// NodeState returns the status of one node.
func (r *RunContext) NodeState(nodeID string) NodeStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.nodeStatus[nodeID]; ok {
		return s
	}
	return NodePending
}

func (r *RunContext) setNodeStatus(nodeID string, s NodeStatus) {
	r.mu.Lock()
	r.nodeStatus[nodeID] = s
	r.mu.Unlock()
}

// Timings returns a copy of the per-node timing map.
func (r *RunContext) Timings() map[string]NodeTiming {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]NodeTiming, len(r.timings))
	for k, v := range r.timings {
		out[k] = v
	}
	return out
}

func (r *RunContext) markStarted(nodeID string) {
	now := time.Now()
	r.mu.Lock()
	t := r.timings[nodeID]
	t.StartedAt = now
	r.timings[nodeID] = t
	r.nodeStatus[nodeID] = NodeRunning
	r.mu.Unlock()
}

func (r *RunContext) markFinished(nodeID string, s NodeStatus) {
	now := time.Now()
	r.mu.Lock()
	t := r.timings[nodeID]
	t.FinishedAt = now
	r.timings[nodeID] = t
	r.nodeStatus[nodeID] = s
	r.mu.Unlock()
}

// Err returns the first-surfaced run error, or nil.
func (r *RunContext) Err() *RunError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// recordFailure records the first failure; later failures do not overwrite.
// Reports whether this call recorded the error.
func (r *RunContext) recordFailure(nodeID string, cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false
	}
	r.err = &RunError{NodeID: nodeID, Cause: cause}
	return true
}
