// Package service exposes the engine's operational surface: submitting runs,
// polling status, cancelling, validating sub-workflows and persisting
// workflow documents. An HTTP layer maps onto these calls one to one.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/concurrency"
	"github.com/wehubfusion/Daedalus/pkg/engine"
	"github.com/wehubfusion/Daedalus/pkg/events"
	"github.com/wehubfusion/Daedalus/pkg/storage"
	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

// ErrTaskNotFound is returned for operations on unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// StatusNotFound is reported for unknown task ids in status polls.
const StatusNotFound = "not_found"

// Config holds manager settings.
type Config struct {
	// MaxConcurrentRuns bounds simultaneously executing top-level runs.
	// Submissions past the limit queue until a slot frees.
	MaxConcurrentRuns int

	// SentryDSN, when set, enables failure capture to Sentry.
	SentryDSN string

	Logger    *zap.Logger
	Publisher events.Publisher
	Store     storage.FileManager
}

// DefaultConfig returns manager defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrentRuns: 16}
}

// Validate applies defaults for unset fields.
func (c *Config) Validate() error {
	if c.MaxConcurrentRuns <= 0 {
		c.MaxConcurrentRuns = DefaultConfig().MaxConcurrentRuns
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Publisher == nil {
		c.Publisher = events.NoopPublisher{}
	}
	return nil
}

// StatusReport is the status poll response.
type StatusReport struct {
	TaskID string                            `json:"task_id"`
	Status string                            `json:"status"`
	Result map[string]map[string]interface{} `json:"result,omitempty"`
	Error  string                            `json:"error,omitempty"`
}

// task tracks one submitted run.
type task struct {
	run  *engine.RunContext
	done chan struct{}
}

// Manager owns the task registry: it admits runs under a concurrency limit,
// executes them asynchronously and retains their terminal state for status
// polls.
type Manager struct {
	registry  *workflow.Registry
	executor  *engine.Executor
	admission *concurrency.Limiter
	config    Config

	mu    sync.RWMutex
	tasks map[string]*task
}

// NewManager creates a manager. The registry resolves node types for
// submitted graphs; the executor runs them.
func NewManager(registry *workflow.Registry, executor *engine.Executor, config Config) (*Manager, error) {
	if registry == nil || executor == nil {
		return nil, fmt.Errorf("manager requires a registry and an executor")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: config.SentryDSN}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
	}
	return &Manager{
		registry:  registry,
		executor:  executor,
		admission: concurrency.NewLimiter(config.MaxConcurrentRuns),
		config:    config,
		tasks:     make(map[string]*task),
	}, nil
}

// Execute parses, builds and validates the workflow JSON, then starts it
// asynchronously. Build and validation failures surface here; runtime
// failures surface through Status.
func (m *Manager) Execute(workflowJSON []byte) (string, error) {
	graph, err := m.buildFromJSON(workflowJSON)
	if err != nil {
		return "", err
	}

	taskID := uuid.NewString()
	run := engine.NewRunContext(context.Background())
	t := &task{run: run, done: make(chan struct{})}

	m.mu.Lock()
	m.tasks[taskID] = t
	m.mu.Unlock()

	m.config.Logger.Info("workflow submitted",
		zap.String("task_id", taskID),
		zap.String("run_id", run.RunID()),
		zap.Int("nodes", graph.Len()))
	m.publish(events.RunEvent{Kind: events.KindStarted, TaskID: taskID, RunID: run.RunID()})

	go m.runTask(taskID, t, graph)
	return taskID, nil
}

// runTask waits for an admission slot, executes the run and publishes the
// terminal event.
func (m *Manager) runTask(taskID string, t *task, graph *workflow.Graph) {
	defer close(t.done)

	// Cancelling a queued task releases it before it ever runs.
	if err := m.admission.Acquire(t.run.Context()); err != nil {
		m.publish(events.RunEvent{Kind: events.KindCancelled, TaskID: taskID, RunID: t.run.RunID()})
		return
	}
	defer m.admission.Release()

	err := m.executor.Execute(t.run, graph)
	switch {
	case err == nil:
		m.publish(events.RunEvent{Kind: events.KindCompleted, TaskID: taskID, RunID: t.run.RunID()})
	case t.run.Status() == engine.StatusCancelled:
		m.publish(events.RunEvent{Kind: events.KindCancelled, TaskID: taskID, RunID: t.run.RunID()})
	default:
		m.config.Logger.Error("workflow run failed",
			zap.String("task_id", taskID),
			zap.String("run_id", t.run.RunID()),
			zap.Error(err))
		m.captureFailure(taskID, err)
		m.publish(events.RunEvent{
			Kind: events.KindFailed, TaskID: taskID, RunID: t.run.RunID(), Error: err.Error(),
		})
	}
}

// Status reports the task state. Error and cancelled runs include the
// partial result store so callers can inspect what completed.
func (m *Manager) Status(taskID string) StatusReport {
	m.mu.RLock()
	t, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return StatusReport{TaskID: taskID, Status: StatusNotFound}
	}

	report := StatusReport{TaskID: taskID}
	switch t.run.Status() {
	case engine.StatusCompleted:
		report.Status = string(engine.StatusCompleted)
		report.Result = t.run.Results().Snapshot()
	case engine.StatusError:
		report.Status = string(engine.StatusError)
		report.Result = t.run.Results().Snapshot()
		if runErr := t.run.Err(); runErr != nil {
			report.Error = runErr.Error()
		}
	case engine.StatusCancelled:
		report.Status = string(engine.StatusCancelled)
		report.Result = t.run.Results().Snapshot()
	default:
		report.Status = string(engine.StatusRunning)
	}
	return report
}

// Cancel requests cooperative cancellation of a task. Idempotent.
func (m *Manager) Cancel(taskID string) error {
	m.mu.RLock()
	t, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	t.run.Cancel()
	m.config.Logger.Info("cancellation requested", zap.String("task_id", taskID))
	return nil
}

// Wait blocks until the task reaches a terminal state or ctx expires.
func (m *Manager) Wait(ctx context.Context, taskID string) error {
	m.mu.RLock()
	t, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending failure reports.
func (m *Manager) Close() {
	if m.config.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}
}

func (m *Manager) buildFromJSON(workflowJSON []byte) (*workflow.Graph, error) {
	def, err := workflow.ParseGraphDefinition(workflowJSON)
	if err != nil {
		return nil, err
	}
	return def.Build(m.registry)
}

func (m *Manager) publish(event events.RunEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.config.Publisher.Publish(ctx, event); err != nil {
		m.config.Logger.Warn("run event delivery failed",
			zap.String("kind", event.Kind),
			zap.String("task_id", event.TaskID),
			zap.Error(err))
	}
}

func (m *Manager) captureFailure(taskID string, err error) {
	if m.config.SentryDSN == "" {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("task_id", taskID)
		sentry.CaptureException(err)
	})
}
