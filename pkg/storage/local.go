package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const fileExtension = ".json"

// LocalFileManager stores workflow documents as files in a single directory,
// one file per name.
type LocalFileManager struct {
	dir    string
	logger *zap.Logger
}

// NewLocalFileManager creates a store rooted at dir, creating it if needed.
func NewLocalFileManager(dir string, logger *zap.Logger) (*LocalFileManager, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workflow directory: %w", err)
	}
	return &LocalFileManager{dir: dir, logger: logger}, nil
}

// Save writes the document atomically via a temp file rename.
func (m *LocalFileManager) Save(_ context.Context, name string, data []byte) error {
	path, err := m.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write workflow '%s': %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store workflow '%s': %w", name, err)
	}

	m.logger.Debug("workflow saved",
		zap.String("name", name),
		zap.Int("size_bytes", len(data)))
	return nil
}

// Load reads the document for the name.
func (m *LocalFileManager) Load(_ context.Context, name string) ([]byte, error) {
	path, err := m.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow '%s': %w", name, err)
	}
	return data, nil
}

// List returns the stored workflow names, unordered.
func (m *LocalFileManager) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fileExtension))
	}
	return names, nil
}

// Delete removes the document for the name.
func (m *LocalFileManager) Delete(_ context.Context, name string) error {
	path, err := m.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete workflow '%s': %w", name, err)
	}
	return nil
}

// path validates the name and maps it to a file path. Separators and path
// traversal are rejected rather than escaped.
func (m *LocalFileManager) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("workflow name is required")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid workflow name '%s'", name)
	}
	return filepath.Join(m.dir, name+fileExtension), nil
}
