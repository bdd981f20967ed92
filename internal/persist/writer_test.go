package persist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterPreservesOrder(t *testing.T) {
	w := NewWriter(time.Second, 1)
	defer w.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		w.Enqueue("write", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	w.Drain()

	require.Len(t, order, 50)
	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestWriterRetriesUntilSuccess(t *testing.T) {
	w := NewWriter(time.Second, 3)
	defer w.Close()

	attempts := 0
	w.Enqueue("flaky", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	w.Drain()

	assert.Equal(t, 3, attempts)
}

func TestWriterAbandonsAfterMaxRetries(t *testing.T) {
	w := NewWriter(time.Second, 2)
	defer w.Close()

	attempts := 0
	w.Enqueue("broken", func(context.Context) error {
		attempts++
		return errors.New("permanent")
	})

	// A failed write never blocks the ones behind it.
	ran := false
	w.Enqueue("next", func(context.Context) error {
		ran = true
		return nil
	})
	w.Drain()

	assert.Equal(t, 2, attempts)
	assert.True(t, ran)
}

func TestWriterEnqueueDoesNotBlockOnStalledBackend(t *testing.T) {
	w := NewWriter(time.Second, 1)
	defer w.Close()

	release := make(chan struct{})
	var ran atomic.Int32
	w.Enqueue("stalled", func(context.Context) error {
		<-release
		ran.Add(1)
		return nil
	})

	enqueued := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			w.Enqueue("write", func(context.Context) error {
				ran.Add(1)
				return nil
			})
		}
		close(enqueued)
	}()

	select {
	case <-enqueued:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked behind a stalled write")
	}

	close(release)
	w.Drain()
	assert.Equal(t, int32(5001), ran.Load())
}

func TestWriterDrainWaitsForSlowWrites(t *testing.T) {
	w := NewWriter(time.Second, 1)
	defer w.Close()

	done := false
	w.Enqueue("slow", func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		done = true
		return nil
	})
	w.Drain()

	assert.True(t, done)
}
