package service

import (
	"context"
	"fmt"
)

// SaveWorkflow validates the document against the registry and persists it
// under the name. Requires a configured store.
func (m *Manager) SaveWorkflow(ctx context.Context, name string, workflowJSON []byte) error {
	if m.config.Store == nil {
		return fmt.Errorf("no workflow store configured")
	}
	if _, err := m.buildFromJSON(workflowJSON); err != nil {
		return err
	}
	return m.config.Store.Save(ctx, name, workflowJSON)
}

// LoadWorkflow returns the stored document.
func (m *Manager) LoadWorkflow(ctx context.Context, name string) ([]byte, error) {
	if m.config.Store == nil {
		return nil, fmt.Errorf("no workflow store configured")
	}
	return m.config.Store.Load(ctx, name)
}

// ListWorkflows returns the stored workflow names.
func (m *Manager) ListWorkflows(ctx context.Context) ([]string, error) {
	if m.config.Store == nil {
		return nil, fmt.Errorf("no workflow store configured")
	}
	return m.config.Store.List(ctx)
}

// DeleteWorkflow removes the stored document.
func (m *Manager) DeleteWorkflow(ctx context.Context, name string) error {
	if m.config.Store == nil {
		return fmt.Errorf("no workflow store configured")
	}
	return m.config.Store.Delete(ctx, name)
}

// ExecuteStored loads a persisted workflow and submits it.
func (m *Manager) ExecuteStored(ctx context.Context, name string) (string, error) {
	data, err := m.LoadWorkflow(ctx, name)
	if err != nil {
		return "", err
	}
	return m.Execute(data)
}
