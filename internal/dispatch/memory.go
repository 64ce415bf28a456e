// internal/dispatch/memory.go
package dispatch

import (
    "context"
    "fmt"
    "log"
    "sync"
    "time"
)

// InMemoryDispatcher runs jobs in-process after their delay. It is the
// local-development and test stand-in for the durable queue; jobs do not
// survive a restart.
type InMemoryDispatcher struct {
    mu      sync.Mutex
    handler func(job Job) error

    MaxRetries int
}

func NewInMemoryDispatcher() *InMemoryDispatcher {
    return &InMemoryDispatcher{MaxRetries: 3}
}

// SetHandler installs the function that receives each dispatched job.
func (d *InMemoryDispatcher) SetHandler(handler func(job Job) error) {
    d.mu.Lock()
    defer d.mu.Unlock()
    d.handler = handler
}

func (d *InMemoryDispatcher) Enqueue(ctx context.Context, job Job, delay time.Duration) error {
    d.mu.Lock()
    handler := d.handler
    d.mu.Unlock()

    if handler == nil {
        return fmt.Errorf("no handler installed for dispatched jobs")
    }

    go func() {
        if delay > 0 {
            time.Sleep(delay)
        }
        d.processJob(handler, job)
    }()

    return nil
}

// processJob handles retries and errors
func (d *InMemoryDispatcher) processJob(handler func(job Job) error, job Job) {
    for attempt := 0; ; attempt++ {
        err := handler(job)
        if err == nil {
            return // ACK
        }

        log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", attempt+1, d.MaxRetries, job, err)

        if attempt+1 >= d.MaxRetries {
            log.Printf("Job permanently failed after %d attempts: %+v\n", d.MaxRetries, job)
            return // No requeue
        }

        // Backoff before retry
        time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
    }
}

var _ Dispatcher = (*InMemoryDispatcher)(nil)
