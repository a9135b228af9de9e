package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("exports", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "j1"}))
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	handler := func(_ context.Context, _ Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient failure %d", attempts)
		}
		close(done)
		return nil
	}

	q := NewQueue("exports", handler, QueueConfig{
		Workers:    1,
		MaxRetries: 5,
		RetryDelay: time.Millisecond,
		Logger:     zap.NewNop(),
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "export"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
}

func TestQueueDropsJobAfterMaxRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	drained := make(chan struct{})
	handler := func(_ context.Context, _ Job) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 3 { // first attempt plus two retries
			close(drained)
		}
		return fmt.Errorf("permanent failure")
	}

	q := NewQueue("exports", handler, QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Logger:     zap.NewNop(),
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "export"}))

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("job never exhausted its retries")
	}
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
}
