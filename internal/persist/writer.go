package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rinkworks/gameclock-server-go/internal/config"
)

// Writer executes backend writes asynchronously, one at a time, in the order
// they were enqueued. The queue is unbounded, so callers never block on I/O
// no matter how far the backend falls behind: failures are retried with
// bounded backoff and then surfaced to the log, never allowed to stall the
// in-memory state machine.
type Writer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool

	wg         sync.WaitGroup
	timeout    time.Duration
	maxRetries int
}

type job struct {
	name string
	fn   func(ctx context.Context) error
}

func NewWriter(timeout time.Duration, maxRetries int) *Writer {
	w := &Writer{
		timeout:    timeout,
		maxRetries: maxRetries,
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Enqueue schedules a write. Order of execution matches order of enqueueing.
func (w *Writer) Enqueue(name string, fn func(ctx context.Context) error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		log.Error().Str("write", name).Msg("write enqueued after close, dropped")
		return
	}
	w.queue = append(w.queue, job{name: name, fn: fn})
	w.wg.Add(1)
	w.cond.Signal()
	w.mu.Unlock()
}

// Drain blocks until every enqueued write has been attempted.
func (w *Writer) Drain() {
	w.wg.Wait()
}

// Close drains outstanding writes and stops the worker. The Writer must not
// be used afterwards.
func (w *Writer) Close() {
	w.wg.Wait()
	w.mu.Lock()
	w.closed = true
	w.cond.Signal()
	w.mu.Unlock()
}

func (w *Writer) run() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		j := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.exec(j)
		w.wg.Done()
	}
}

func (w *Writer) exec(j job) {
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := j.fn(ctx)
		cancel()

		if err == nil {
			return
		}

		log.Error().
			Err(err).
			Str("write", j.name).
			Int("attempt", attempt).
			Msg("backend write failed")

		if attempt < w.maxRetries {
			time.Sleep(config.WriteRetryBackoff * time.Duration(attempt))
		}
	}

	log.Error().
		Str("write", j.name).
		Int("attempts", w.maxRetries).
		Msg("backend write abandoned after retries")
}
