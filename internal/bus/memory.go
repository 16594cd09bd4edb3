// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package bus

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time check to verify implements interface.
var _ Bus = (*Memory)(nil)

// Memory is an in-process Bus used by end-to-end scenario tests. Publish
// fans the envelope out to every channel returned by Consume, mirroring
// the fanout exchange's semantics without a broker.
type Memory struct {
	mu       sync.Mutex
	subs     []chan Delivery
	closed   bool
}

// NewMemory creates an empty in-memory bus.
func NewMemory() *Memory {
	return &Memory{}
}

func (b *Memory) Publish(ctx context.Context, env Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("bus: publish on closed bus")
	}

	for _, ch := range b.subs {
		d := Delivery{
			Envelope: env,
			Ack:      func() error { return nil },
			Nack:     func(requeue bool) error { return nil },
		}
		select {
		case ch <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Memory) Consume(ctx context.Context) (<-chan Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Delivery, 16)
	b.subs = append(b.subs, ch)

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return ch, nil
}

func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
