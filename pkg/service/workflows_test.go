package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/storage"
)

func newStoredManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.NewLocalFileManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return newTestManager(t, Config{Store: store})
}

func TestManager_SaveWorkflow_RoundTrip(t *testing.T) {
	m := newStoredManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveWorkflow(ctx, "strip", []byte(stripWorkflow)))

	data, err := m.LoadWorkflow(ctx, "strip")
	require.NoError(t, err)
	assert.JSONEq(t, stripWorkflow, string(data))

	names, err := m.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"strip"}, names)

	require.NoError(t, m.DeleteWorkflow(ctx, "strip"))
	_, err = m.LoadWorkflow(ctx, "strip")
	assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)
}

func TestManager_SaveWorkflow_RejectsInvalidDocument(t *testing.T) {
	m := newStoredManager(t)
	ctx := context.Background()

	err := m.SaveWorkflow(ctx, "bad", []byte(`{"nodes": {"n": {"type": "no-such-type"}}}`))
	require.Error(t, err)

	names, err := m.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "invalid documents must not be persisted")
}

func TestManager_ExecuteStored(t *testing.T) {
	m := newStoredManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveWorkflow(ctx, "strip", []byte(stripWorkflow)))

	taskID, err := m.ExecuteStored(ctx, "strip")
	require.NoError(t, err)
	waitFor(t, m, taskID)
	assert.Equal(t, "completed", m.Status(taskID).Status)
}

func TestManager_ExecuteStored_MissingWorkflow(t *testing.T) {
	m := newStoredManager(t)
	_, err := m.ExecuteStored(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrWorkflowNotFound)
}

func TestManager_WorkflowOps_RequireStore(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	assert.Error(t, m.SaveWorkflow(ctx, "x", []byte(stripWorkflow)))
	_, err := m.LoadWorkflow(ctx, "x")
	assert.Error(t, err)
	_, err = m.ListWorkflows(ctx)
	assert.Error(t, err)
	assert.Error(t, m.DeleteWorkflow(ctx, "x"))
}
