package dispatch

import (
    "context"
    "fmt"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestEnqueueWithoutHandlerFails(t *testing.T) {
    d := NewInMemoryDispatcher()
    err := d.Enqueue(context.Background(), Job{CompanyID: "c1", SessionID: "s1"}, 0)
    assert.Error(t, err)
}

func TestEnqueueDeliversJob(t *testing.T) {
    d := NewInMemoryDispatcher()
    got := make(chan Job, 1)
    d.SetHandler(func(job Job) error {
        got <- job
        return nil
    })

    require.NoError(t, d.Enqueue(context.Background(), Job{CompanyID: "c1", SessionID: "s1"}, 0))

    select {
    case job := <-got:
        assert.Equal(t, "s1", job.SessionID)
        assert.Equal(t, "c1", job.CompanyID)
    case <-time.After(2 * time.Second):
        t.Fatal("job was never delivered")
    }
}

func TestEnqueueHonorsDelay(t *testing.T) {
    d := NewInMemoryDispatcher()
    got := make(chan time.Time, 1)
    d.SetHandler(func(Job) error {
        got <- time.Now()
        return nil
    })

    start := time.Now()
    require.NoError(t, d.Enqueue(context.Background(), Job{SessionID: "s1"}, 100*time.Millisecond))

    select {
    case delivered := <-got:
        assert.GreaterOrEqual(t, delivered.Sub(start), 100*time.Millisecond)
    case <-time.After(2 * time.Second):
        t.Fatal("job was never delivered")
    }
}

func TestFailedJobIsRetried(t *testing.T) {
    d := NewInMemoryDispatcher()
    var attempts int32
    done := make(chan struct{})
    d.SetHandler(func(Job) error {
        if atomic.AddInt32(&attempts, 1) == 1 {
            return fmt.Errorf("transient")
        }
        close(done)
        return nil
    })

    require.NoError(t, d.Enqueue(context.Background(), Job{SessionID: "s1"}, 0))

    select {
    case <-done:
        assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
    case <-time.After(5 * time.Second):
        t.Fatal("job was never retried to success")
    }
}

func TestJobGivesUpAfterMaxRetries(t *testing.T) {
    d := NewInMemoryDispatcher()
    d.MaxRetries = 2
    var attempts int32
    d.SetHandler(func(Job) error {
        atomic.AddInt32(&attempts, 1)
        return fmt.Errorf("permanent")
    })

    require.NoError(t, d.Enqueue(context.Background(), Job{SessionID: "s1"}, 0))

    // One initial attempt plus one retry, then the job is dropped.
    time.Sleep(2 * time.Second)
    assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}
