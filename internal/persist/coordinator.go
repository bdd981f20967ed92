package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rinkworks/gameclock-server-go/internal/config"
)

// SaveFunc writes the current board snapshot. It reads the latest state at
// execution time, so coalesced saves always persist the newest board.
type SaveFunc func(ctx context.Context) error

// Coordinator debounces snapshot writes: saves requested within the debounce
// window collapse into a single write of the latest state. At most one write
// is in flight, whether it comes from the debounce timer or from Flush; a
// save requested while one is running is deferred and re-triggered when it
// completes, never dropped. Once the latest state has been persisted the
// coordinator goes quiet: flushing with nothing pending writes nothing.
type Coordinator struct {
	mu         sync.Mutex
	save       SaveFunc
	debounce   time.Duration
	timeout    time.Duration
	maxRetries int
	name       string

	timer        *time.Timer
	dirty        bool
	inFlight     bool
	pending      bool
	inFlightDone chan struct{}
}

func NewCoordinator(name string, save SaveFunc, debounce, timeout time.Duration, maxRetries int) *Coordinator {
	return &Coordinator{
		name:       name,
		save:       save,
		debounce:   debounce,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// Save schedules a debounced snapshot write. Calling it again before the
// window elapses restarts the window.
func (c *Coordinator) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirty = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.fire)
}

func (c *Coordinator) fire() {
	c.mu.Lock()
	c.timer = nil
	if c.inFlight {
		c.pending = true
		c.mu.Unlock()
		return
	}
	if !c.dirty {
		// A flush beat the timer to it; nothing left to write.
		c.mu.Unlock()
		return
	}
	c.dirty = false
	c.inFlight = true
	done := make(chan struct{})
	c.inFlightDone = done
	c.mu.Unlock()

	c.write()

	c.finish(done)
}

// finish closes out one write and re-triggers if a save landed meanwhile.
func (c *Coordinator) finish(done chan struct{}) {
	c.mu.Lock()
	c.inFlight = false
	close(done)
	rearm := c.pending
	c.pending = false
	c.mu.Unlock()

	if rearm {
		go c.fire()
	}
}

func (c *Coordinator) write() {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		err := c.save(ctx)
		cancel()

		if err == nil {
			return
		}

		log.Error().
			Err(err).
			Str("coordinator", c.name).
			Int("attempt", attempt).
			Msg("snapshot write failed")

		if attempt < c.maxRetries {
			time.Sleep(config.WriteRetryBackoff * time.Duration(attempt))
		}
	}

	log.Error().
		Str("coordinator", c.name).
		Int("attempts", c.maxRetries).
		Msg("snapshot write abandoned; board state will be stale until the next save")
}

// Flush cancels any pending debounce, waits for an in-flight write, and, if
// a requested save has not yet been persisted, performs one synchronous
// write of the latest state. When everything already landed it writes
// nothing, so closing an untouched or long-quiet session appends no rows.
// Called on game end and orderly shutdown.
func (c *Coordinator) Flush(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		if c.inFlight {
			done := c.inFlightDone
			c.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if !c.dirty {
			c.mu.Unlock()
			return nil
		}
		c.dirty = false
		c.pending = false
		c.inFlight = true
		done := make(chan struct{})
		c.inFlightDone = done
		c.mu.Unlock()

		err := c.save(ctx)
		c.finish(done)
		return err
	}
}
