// internal/handler/worker_handler.go
package handler

import (
    "encoding/json"
    "log"
    "net/http"

    "github.com/fleetrecruit/outreach-backend/internal/dispatch"
    "github.com/fleetrecruit/outreach-backend/internal/service"
)

// WorkerHandler is the HTTP surface the dispatch system invokes. End users
// never call it: without the trusted dispatch token the request is rejected,
// except in local-development mode.
type WorkerHandler struct {
    Worker        *service.BatchWorker
    DispatchToken string
    DevMode       bool
}

func NewWorkerHandler(worker *service.BatchWorker, token string, devMode bool) *WorkerHandler {
    return &WorkerHandler{
        Worker:        worker,
        DispatchToken: token,
        DevMode:       devMode,
    }
}

// HandleInvocation runs one batch for the session named in the payload.
func (h *WorkerHandler) HandleInvocation(w http.ResponseWriter, r *http.Request) {
    if !h.DevMode {
        token := r.Header.Get("X-Dispatch-Token")
        if h.DispatchToken == "" || token != h.DispatchToken {
            http.Error(w, "forbidden", http.StatusForbidden)
            return
        }
    }

    var job dispatch.Job
    if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
        http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
        return
    }
    if job.CompanyID == "" || job.SessionID == "" {
        http.Error(w, "companyId and sessionId are required", http.StatusBadRequest)
        return
    }

    if err := h.Worker.Run(r.Context(), job); err != nil {
        log.Println("❌ batch run failed:", err)
        http.Error(w, "batch run failed: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}
