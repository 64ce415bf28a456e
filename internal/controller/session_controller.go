// internal/controller/session_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"

    "github.com/fleetrecruit/outreach-backend/internal/auth"
    appErrors "github.com/fleetrecruit/outreach-backend/internal/errors"
    "github.com/fleetrecruit/outreach-backend/internal/model"
    "github.com/fleetrecruit/outreach-backend/internal/repository"
    "github.com/fleetrecruit/outreach-backend/internal/service"
)

type SessionController struct {
    SessionService *service.SessionService
    Authorizer     auth.Authorizer
}

func (c *SessionController) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
    companyID := chi.URLParam(r, "companyID")
    if err := c.Authorizer.Authorize(r, companyID); err != nil {
        http.Error(w, "forbidden", http.StatusForbidden)
        return "", false
    }
    return companyID, true
}

func writeControlError(w http.ResponseWriter, err error) {
    var notFound *appErrors.ErrSessionNotFound
    var invalid *appErrors.ErrInvalidTransition
    switch {
    case errors.As(err, &notFound):
        http.Error(w, err.Error(), http.StatusNotFound)
    case errors.As(err, &invalid):
        http.Error(w, err.Error(), http.StatusConflict)
    default:
        http.Error(w, err.Error(), http.StatusInternalServerError)
    }
}

func (c *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
    companyID, ok := c.authorize(w, r)
    if !ok {
        return
    }

    var body struct {
        SessionName string   `json:"session_name"`
        TargetIDs   []string `json:"target_ids"`
        Filters     *struct {
            SourceType string `json:"source_type"`
            Location   string `json:"location"`
            Limit      int    `json:"limit"`
        } `json:"filters"`
        Targets []struct {
            ID    string `json:"id"`
            Name  string `json:"name"`
            Phone string `json:"phone"`
            Email string `json:"email"`
        } `json:"targets"`
        Config struct {
            Method     string `json:"method"`
            Message    string `json:"message"`
            Subject    string `json:"subject"`
            SenderName string `json:"sender_name"`
        } `json:"config"`
        ScheduledFor *time.Time `json:"scheduled_for"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    in := service.CreateSessionInput{
        CompanyID: companyID,
        Name:      body.SessionName,
        TargetIDs: body.TargetIDs,
        Config: model.SendConfig{
            Channel:         body.Config.Method,
            MessageTemplate: body.Config.Message,
            Subject:         body.Config.Subject,
            SenderName:      body.Config.SenderName,
        },
        ScheduledFor: body.ScheduledFor,
    }
    if body.Filters != nil {
        in.Filters = &repository.TargetFilters{
            SourceType: body.Filters.SourceType,
            Location:   body.Filters.Location,
            Limit:      body.Filters.Limit,
        }
    }
    for _, t := range body.Targets {
        in.ImportRows = append(in.ImportRows, model.ImportTarget{
            TargetID: t.ID,
            Name:     t.Name,
            Phone:    t.Phone,
            Email:    t.Email,
        })
    }

    result, err := c.SessionService.CreateSession(r.Context(), in)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "success":      true,
        "session_id":   result.SessionID,
        "target_count": result.TargetCount,
        "status":       result.Status,
    })
}

func (c *SessionController) ListSessions(w http.ResponseWriter, r *http.Request) {
    companyID, ok := c.authorize(w, r)
    if !ok {
        return
    }

    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
    channel := r.URL.Query().Get("channel")
    status := r.URL.Query().Get("status")

    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }

    sessions, pagination, err := c.SessionService.ListSessions(companyID, page, pageSize, channel, status)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":       sessions,
        "pagination": pagination,
    })
}

func (c *SessionController) GetSessionDetails(w http.ResponseWriter, r *http.Request) {
    companyID, ok := c.authorize(w, r)
    if !ok {
        return
    }

    details, err := c.SessionService.GetSessionDetails(companyID, chi.URLParam(r, "id"))
    if err != nil {
        writeControlError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(details)
}

func (c *SessionController) PauseSession(w http.ResponseWriter, r *http.Request) {
    c.control(w, r, "session paused", func(companyID, sessionID string, req *http.Request) error {
        return c.SessionService.Pause(req.Context(), companyID, sessionID)
    })
}

func (c *SessionController) ResumeSession(w http.ResponseWriter, r *http.Request) {
    c.control(w, r, "session resumed", func(companyID, sessionID string, req *http.Request) error {
        return c.SessionService.Resume(req.Context(), companyID, sessionID)
    })
}

func (c *SessionController) CancelSession(w http.ResponseWriter, r *http.Request) {
    c.control(w, r, "session cancelled", func(companyID, sessionID string, req *http.Request) error {
        return c.SessionService.Cancel(req.Context(), companyID, sessionID)
    })
}

func (c *SessionController) control(w http.ResponseWriter, r *http.Request, okMessage string, fn func(companyID, sessionID string, req *http.Request) error) {
    companyID, ok := c.authorize(w, r)
    if !ok {
        return
    }

    if err := fn(companyID, chi.URLParam(r, "id"), r); err != nil {
        writeControlError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "success": true,
        "message": okMessage,
    })
}

func (c *SessionController) RetrySession(w http.ResponseWriter, r *http.Request) {
    companyID, ok := c.authorize(w, r)
    if !ok {
        return
    }

    result, err := c.SessionService.Retry(r.Context(), companyID, chi.URLParam(r, "id"))
    if err != nil {
        var nothing *appErrors.ErrNothingToRetry
        if errors.As(err, &nothing) {
            w.Header().Set("Content-Type", "application/json")
            json.NewEncoder(w).Encode(map[string]interface{}{
                "success": false,
                "message": "nothing to retry",
            })
            return
        }
        writeControlError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "success":        true,
        "new_session_id": result.NewSessionID,
        "target_count":   result.TargetCount,
        "message":        "retry session created",
    })
}

func (c *SessionController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
    companyID, ok := c.authorize(w, r)
    if !ok {
        return
    }
    sessionID := chi.URLParam(r, "id")

    var body struct {
        TargetID         string  `json:"target_id"`
        OverrideTemplate *string `json:"override_template"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    rendered, err := c.SessionService.RenderPreview(companyID, sessionID, body.TargetID, body.OverrideTemplate)
    if err != nil {
        writeControlError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "rendered_message": rendered,
        "target_id":        body.TargetID,
    })
}
