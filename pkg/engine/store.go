package engine

import (
	"fmt"
	"sync"
)

// ResultStore holds completed node outputs for a single run, keyed by node id.
// The scheduler loop is the sole writer and each key is written at most once;
// the lock exists for readers polling partial results mid-run.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]map[string]interface{}
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]map[string]interface{})}
}

// Set records the outputs of a completed node. Writing a node id twice is a
// scheduler bug and returns an error rather than silently overwriting.
func (s *ResultStore) Set(nodeID string, outputs map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[nodeID]; exists {
		return fmt.Errorf("results for node '%s' already recorded", nodeID)
	}
	if outputs == nil {
		outputs = map[string]interface{}{}
	}
	s.results[nodeID] = outputs
	return nil
}

// Get returns the outputs of a node and whether the node has completed.
func (s *ResultStore) Get(nodeID string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.results[nodeID]
	return out, ok
}

// Output returns one output value of a node. The second return is false when
// the node has not completed or produced no such port.
func (s *ResultStore) Output(nodeID, port string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.results[nodeID]
	if !ok {
		return nil, false
	}
	v, ok := out[port]
	return v, ok
}

// Len returns the number of completed nodes.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Snapshot returns a deep-enough copy of the node id -> outputs map for safe
// reading while the run continues.
func (s *ResultStore) Snapshot() map[string]map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]interface{}, len(s.results))
	for id, res := range s.results {
		copied := make(map[string]interface{}, len(res))
		for k, v := range res {
			copied[k] = v
		}
		out[id] = copied
	}
	return out
}
