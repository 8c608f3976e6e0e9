package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStore_SetAndGet(t *testing.T) {
	store := NewResultStore()
	require.NoError(t, store.Set("a", map[string]interface{}{"out": 1}))

	out, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, out["out"])

	_, ok = store.Get("b")
	assert.False(t, ok)
}

func TestResultStore_SetTwiceFails(t *testing.T) {
	store := NewResultStore()
	require.NoError(t, store.Set("a", nil))

	err := store.Set("a", map[string]interface{}{"out": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already recorded")
}

func TestResultStore_Output(t *testing.T) {
	store := NewResultStore()
	require.NoError(t, store.Set("a", map[string]interface{}{"out": "x"}))

	v, ok := store.Output("a", "out")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = store.Output("a", "missing")
	assert.False(t, ok)
	_, ok = store.Output("ghost", "out")
	assert.False(t, ok)
}

func TestResultStore_SnapshotIsDetached(t *testing.T) {
	store := NewResultStore()
	require.NoError(t, store.Set("a", map[string]interface{}{"out": "x"}))

	snap := store.Snapshot()
	snap["a"]["out"] = "mutated"

	v, _ := store.Output("a", "out")
	assert.Equal(t, "x", v)
}
