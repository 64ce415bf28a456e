// internal/dispatch/dispatch.go
package dispatch

import (
    "context"
    "time"
)

// Job is the worker invocation payload.
type Job struct {
    CompanyID string `json:"companyId"`
    SessionID string `json:"sessionId"`
}

// Dispatcher is the durable "come back later" primitive: it delivers the job
// to the batch worker after the given delay, at least once.
type Dispatcher interface {
    Enqueue(ctx context.Context, job Job, delay time.Duration) error
}
