package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Daedalus/pkg/workflow"
)

func TestExecutor_LinearPipeline(t *testing.T) {
	upper := newTestNode("upper", func(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"out": strings.ToUpper(inputs["in"].(string))}, nil
	})
	strip := newTestNode("strip", func(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"out": strings.TrimSpace(inputs["in"].(string))}, nil
	})
	source := newTestNode("source", emit("  hello  "))

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(source))
	require.NoError(t, g.AddNode(strip))
	require.NoError(t, g.AddNode(upper))
	chain(g, "source", "strip")
	chain(g, "strip", "upper")

	run, err := NewExecutor(nil).Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status())

	v, ok := run.Results().Output("upper", "out")
	require.True(t, ok)
	assert.Equal(t, "HELLO", v)
}

func TestExecutor_TopologicalOrderRespected(t *testing.T) {
	// Diamond: a -> b, a -> c, b -> d, c -> d.
	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(newTestNode("a", emit(1))))
	b := newTestNode("b", emit(2))
	b.AddInputPort("in2", workflow.TypeAny, false, nil)
	require.NoError(t, g.AddNode(b))
	require.NoError(t, g.AddNode(newTestNode("c", emit(3))))
	d := newTestNode("d", emit(4))
	d.AddInputPort("in2", workflow.TypeAny, false, nil)
	require.NoError(t, g.AddNode(d))

	chain(g, "a", "b")
	chain(g, "a", "c")
	chain(g, "b", "d")
	g.AddConnection(workflow.Connection{FromNode: "c", FromPort: "out", ToNode: "d", ToPort: "in2"})

	run, err := NewExecutor(nil).Run(context.Background(), g)
	require.NoError(t, err)

	timings := run.Timings()
	edges := [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}
	for _, edge := range edges {
		upstream, downstream := timings[edge[0]], timings[edge[1]]
		assert.False(t, downstream.StartedAt.Before(upstream.FinishedAt),
			"%s started before %s finished", edge[1], edge[0])
	}
}

func TestExecutor_FailureCancelsRun(t *testing.T) {
	boom := errors.New("boom")
	failing := newTestNode("failing", func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
		return nil, boom
	})
	slow := newTestNode("slow", func(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return map[string]interface{}{"out": "never"}, nil
		}
	})
	downstream := newTestNode("downstream", emit("x"))

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(failing))
	require.NoError(t, g.AddNode(slow))
	require.NoError(t, g.AddNode(downstream))
	chain(g, "failing", "downstream")

	start := time.Now()
	run, err := NewExecutor(nil).Run(context.Background(), g)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second, "failure should cancel the slow sibling")

	assert.Equal(t, StatusError, run.Status())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "failing", runErr.NodeID)
	assert.ErrorIs(t, err, boom)

	statuses := run.NodeStatuses()
	assert.Equal(t, NodeFailed, statuses["failing"])
	assert.Equal(t, NodeSkipped, statuses["downstream"])

	_, ok := run.Results().Get("failing")
	assert.False(t, ok)
	_, ok = run.Results().Get("slow")
	assert.False(t, ok, "in-flight outputs after failure are discarded")
}

func TestExecutor_ExternalCancelPreservesCompletedResults(t *testing.T) {
	quickDone := make(chan struct{})
	quick := newTestNode("quick", func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
		defer close(quickDone)
		return map[string]interface{}{"out": "done"}, nil
	})
	blocked := newTestNode("blocked", func(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(quick))
	require.NoError(t, g.AddNode(blocked))

	run := NewRunContext(context.Background())
	go func() {
		<-quickDone
		// Give the scheduler a beat to record quick's outputs.
		time.Sleep(50 * time.Millisecond)
		run.Cancel()
	}()

	err := NewExecutor(nil).Execute(run, g)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, run.Status())

	_, ok := run.Results().Get("quick")
	assert.True(t, ok, "results completed before cancel are preserved")
	_, ok = run.Results().Get("blocked")
	assert.False(t, ok)
}

func TestExecutor_ParentCancelReportsCancelled(t *testing.T) {
	blocked := newTestNode("blocked", func(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(blocked))

	parent := NewRunContext(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		parent.Cancel()
	}()

	child, err := NewExecutor(nil).RunSubgraph(parent, g)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, child.Status())
	assert.Nil(t, child.Err(), "a chained cancel is not a run error")
}

func TestExecutor_CallerContextCancelReportsCancelled(t *testing.T) {
	blocked := newTestNode("blocked", func(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(blocked))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	run, err := NewExecutor(nil).Run(ctx, g)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, run.Status())
	assert.Nil(t, run.Err())
}

func TestExecutor_MissingRequiredInputFailsNode(t *testing.T) {
	needy := &testNode{BaseNode: workflow.NewBaseNode("needy", "test")}
	needy.AddInputPort("data", workflow.TypeAny, true, nil)

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(needy))

	run, err := NewExecutor(nil).Run(context.Background(), g)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrMissingRequiredInput)
	assert.Equal(t, NodeFailed, run.NodeStatuses()["needy"])
}

func TestExecutor_CycleRejectedBeforeAnyNodeRuns(t *testing.T) {
	ran := false
	a := newTestNode("a", func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
		ran = true
		return nil, nil
	})
	b := newTestNode("b", nil)

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(b))
	chain(g, "a", "b")
	chain(g, "b", "a")

	_, err := NewExecutor(nil).Run(context.Background(), g)
	require.Error(t, err)

	var cycle *workflow.CycleError
	assert.ErrorAs(t, err, &cycle)
	assert.False(t, ran, "no node may run in a cyclic graph")
}

func TestExecutor_PanicBecomesNodeFailure(t *testing.T) {
	panicky := newTestNode("panicky", func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
		panic("kaboom")
	})

	g := workflow.NewGraph()
	require.NoError(t, g.AddNode(panicky))

	run, err := NewExecutor(nil).Run(context.Background(), g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, StatusError, run.Status())
}

func TestExecutor_EmptyGraphCompletes(t *testing.T) {
	run, err := NewExecutor(nil).Run(context.Background(), workflow.NewGraph())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status())
	assert.Equal(t, 0, run.Results().Len())
}

func TestExecutor_DeterministicResults(t *testing.T) {
	build := func() *workflow.Graph {
		g := workflow.NewGraph()
		require.NoError(t, g.AddNode(newTestNode("a", emit(float64(10)))))
		double := newTestNode("double", func(_ context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"out": inputs["in"].(float64) * 2}, nil
		})
		require.NoError(t, g.AddNode(double))
		chain(g, "a", "double")
		return g
	}

	exec := NewExecutor(nil)
	first, err := exec.Run(context.Background(), build())
	require.NoError(t, err)
	second, err := exec.Run(context.Background(), build())
	require.NoError(t, err)

	assert.Equal(t, first.Results().Snapshot(), second.Results().Snapshot())
	assert.NotEqual(t, first.RunID(), second.RunID())
}

func TestRunContext_ChildCancelChains(t *testing.T) {
	parent := NewRunContext(context.Background())
	child := parent.NewChild()

	parent.Cancel()
	select {
	case <-child.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("child context not cancelled with parent")
	}
}
