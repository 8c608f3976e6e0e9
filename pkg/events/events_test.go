package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisher_DiscardsEvents(t *testing.T) {
	var p Publisher = NoopPublisher{}
	err := p.Publish(context.Background(), RunEvent{Kind: KindStarted, TaskID: "t1"})
	assert.NoError(t, err)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "workflow.events", config.Subject)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, time.Second, config.RetryDelay)
}

func TestNewNATSPublisher_RequiresConnection(t *testing.T) {
	_, err := NewNATSPublisher(nil, DefaultConfig())
	require.Error(t, err)
}
