// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemory_PublishDeliversToConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemory()
	deliveries, err := b.Consume(ctx)
	require.NoError(t, err)

	env := Envelope{RequestID: uuid.New(), APIKey: "key-a", SubmittedAt: time.Now()}
	require.NoError(t, b.Publish(ctx, env))

	select {
	case d := <-deliveries:
		require.Equal(t, env.RequestID, d.Envelope.RequestID)
		require.NoError(t, d.Ack())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestMemory_PublishAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()
	require.NoError(t, b.Close())

	err := b.Publish(ctx, Envelope{RequestID: uuid.New()})
	require.Error(t, err)
}
