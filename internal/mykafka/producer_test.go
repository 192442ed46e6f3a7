package mykafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	require.Error(t, err)

	p, err := NewProducer([]string{"localhost:9092"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	require.NoError(t, r.PublishEvent(ctx, TopicOrderEvents, "1", map[string]any{"type": "order_paid", "order_id": 1}))
	require.NoError(t, r.PublishEvent(ctx, TopicCartEvents, "1", map[string]any{"type": "cart_cleared"}))

	assert.Equal(t, []string{"order_paid"}, r.Types(TopicOrderEvents))
	assert.EqualValues(t, 1, r.Events[0].Event["order_id"])
}
