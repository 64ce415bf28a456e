// internal/service/statemachine.go
package service

import "github.com/fleetrecruit/outreach-backend/internal/model"

// allowedFrom lists, per destination status, the statuses a session may be
// in for the transition to go through. Terminal statuses never appear as a
// source except where the machine explicitly allows it.
var allowedFrom = map[string][]string{
    model.StatusActive: {
        model.StatusQueued, model.StatusScheduled, model.StatusPaused,
    },
    model.StatusPaused: {
        model.StatusActive, model.StatusQueued, model.StatusScheduled,
    },
    model.StatusCancelled: {
        model.StatusQueued, model.StatusScheduled, model.StatusActive, model.StatusPaused,
    },
    model.StatusCompleted: {
        model.StatusActive,
    },
    model.StatusFailed: {
        model.StatusQueued, model.StatusScheduled, model.StatusActive,
    },
}

// AllowedFrom returns the legal source statuses for a transition into the
// given status.
func AllowedFrom(to string) []string {
    return allowedFrom[to]
}
