// Package storage persists workflow definitions as opaque JSON documents
// keyed by name, with local-disk and Azure Blob backends.
package storage

import (
	"context"
	"errors"
)

// ErrWorkflowNotFound is returned when no document exists under a name.
var ErrWorkflowNotFound = errors.New("workflow not found")

// FileManager stores and retrieves workflow documents. Names are opaque keys;
// contents are JSON matching the graph schema, but the store never inspects
// them.
type FileManager interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}
