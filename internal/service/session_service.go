// internal/service/session_service.go
package service

import (
    "context"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/fleetrecruit/outreach-backend/internal/dispatch"
    appErrors "github.com/fleetrecruit/outreach-backend/internal/errors"
    "github.com/fleetrecruit/outreach-backend/internal/model"
    "github.com/fleetrecruit/outreach-backend/internal/repository"
)

type SessionService struct {
    Sessions   repository.SessionRepositoryInterface
    Logs       repository.LogRepositoryInterface
    Leads      repository.LeadRepositoryInterface
    Companies  repository.CompanyRepositoryInterface
    Dispatcher dispatch.Dispatcher

    // MaxTargets is the hard ceiling on one session's target list.
    MaxTargets int
}

type CreateSessionInput struct {
    CompanyID    string
    Name         string
    TargetIDs    []string
    Filters      *repository.TargetFilters
    ImportRows   []model.ImportTarget
    Config       model.SendConfig
    ScheduledFor *time.Time
}

type CreateSessionResult struct {
    SessionID   string
    TargetCount int
    Status      string
}

type RetryResult struct {
    NewSessionID string
    TargetCount  int
}

// SessionDetails is the session document plus live log stats.
type SessionDetails struct {
    Session *model.CampaignSession `json:"session"`
    Stats   map[string]int         `json:"stats"`
}

// CreateSession resolves the target list, persists the session document and
// enqueues the first worker invocation. Everything after the returned
// acknowledgment is asynchronous; callers observe progress by polling.
func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionResult, error) {
    if in.Config.Channel != model.ChannelSMS && in.Config.Channel != model.ChannelEmail {
        return nil, fmt.Errorf("unsupported channel: %q", in.Config.Channel)
    }
    if strings.TrimSpace(in.Config.MessageTemplate) == "" {
        return nil, fmt.Errorf("message template cannot be empty")
    }

    sessionID := uuid.NewString()

    targetIDs, sourceType, importRows, err := s.resolveTargets(sessionID, in)
    if err != nil {
        return nil, err
    }

    status := model.StatusQueued
    delay := time.Duration(0)
    if in.ScheduledFor != nil {
        if until := time.Until(*in.ScheduledFor); until > 0 {
            status = model.StatusScheduled
            delay = until
        }
    }

    sess := &model.CampaignSession{
        ID:             sessionID,
        CompanyID:      in.CompanyID,
        Name:           in.Name,
        Status:         status,
        TargetIDs:      targetIDs,
        LeadSourceType: sourceType,
        Config:         in.Config,
        ScheduledFor:   in.ScheduledFor,
    }

    if err := s.Sessions.Create(sess); err != nil {
        return nil, fmt.Errorf("failed to create session: %w", err)
    }

    if len(importRows) > 0 {
        if err := s.Leads.SaveImportTargets(importRows); err != nil {
            return nil, fmt.Errorf("failed to snapshot import rows: %w", err)
        }
    }

    if err := s.enqueue(ctx, sess, delay); err != nil {
        return nil, err
    }

    return &CreateSessionResult{
        SessionID:   sessionID,
        TargetCount: len(targetIDs),
        Status:      status,
    }, nil
}

// resolveTargets picks the target list from whichever input form was given:
// raw import rows, an explicit ID list, or a filter spec handed to the
// resolver. The list is deduplicated, order-preserving and capped.
func (s *SessionService) resolveTargets(sessionID string, in CreateSessionInput) ([]string, string, []model.ImportTarget, error) {
    if len(in.ImportRows) > 0 {
        ids := make([]string, 0, len(in.ImportRows))
        rows := make([]model.ImportTarget, 0, len(in.ImportRows))
        for _, row := range in.ImportRows {
            if row.TargetID == "" {
                row.TargetID = uuid.NewString()
            }
            row.SessionID = sessionID
            ids = append(ids, row.TargetID)
            rows = append(rows, row)
            if len(ids) >= s.MaxTargets {
                break
            }
        }
        return dedupe(ids), model.SourceImport, rows, nil
    }

    if len(in.TargetIDs) > 0 {
        sourceType := model.SourceCompany
        if in.Filters != nil && in.Filters.SourceType != "" {
            sourceType = in.Filters.SourceType
        }
        ids := dedupe(in.TargetIDs)
        if len(ids) > s.MaxTargets {
            ids = ids[:s.MaxTargets]
        }
        return ids, sourceType, nil, nil
    }

    if in.Filters == nil {
        return nil, "", nil, fmt.Errorf("either targets or filters must be provided")
    }

    f := *in.Filters
    if f.Limit <= 0 || f.Limit > s.MaxTargets {
        f.Limit = s.MaxTargets
    }
    ids, sourceType, err := s.Leads.ResolveTargets(in.CompanyID, f)
    if err != nil {
        return nil, "", nil, fmt.Errorf("target resolution failed: %w", err)
    }
    return ids, sourceType, nil, nil
}

func dedupe(ids []string) []string {
    seen := make(map[string]bool, len(ids))
    out := make([]string, 0, len(ids))
    for _, id := range ids {
        if id == "" || seen[id] {
            continue
        }
        seen[id] = true
        out = append(out, id)
    }
    return out
}

// enqueue schedules one worker invocation. Dispatch failure is fatal to the
// session: it is parked as failed with a diagnostic, because without
// re-dispatch it has no other way to make progress.
func (s *SessionService) enqueue(ctx context.Context, sess *model.CampaignSession, delay time.Duration) error {
    job := dispatch.Job{CompanyID: sess.CompanyID, SessionID: sess.ID}
    if err := s.Dispatcher.Enqueue(ctx, job, delay); err != nil {
        diag := fmt.Sprintf("failed to schedule worker: %v", err)
        if ferr := s.Sessions.SetFailed(sess.ID, diag); ferr != nil {
            log.Println("⚠️ failed to mark session failed:", ferr)
        }
        return fmt.Errorf("%s", diag)
    }
    return nil
}

// Pause stops further batches from being claimed. A batch already mid-flight
// finishes; the worker observes the new status at its next check.
func (s *SessionService) Pause(ctx context.Context, companyID, sessionID string) error {
    return s.Sessions.UpdateStatus(companyID, sessionID, model.StatusPaused, AllowedFrom(model.StatusPaused))
}

// Resume reactivates a paused session and kicks the worker once. A paused
// session whose cursor already reached the end is left alone: re-enqueueing
// a finished campaign would be pointless.
func (s *SessionService) Resume(ctx context.Context, companyID, sessionID string) error {
    sess, err := s.Sessions.GetByID(companyID, sessionID)
    if err != nil {
        return err
    }
    if sess.Status != model.StatusPaused {
        return appErrors.NewInvalidTransition(sessionID, sess.Status, model.StatusActive)
    }
    if sess.Remaining() == 0 {
        return fmt.Errorf("session %s has no remaining targets", sessionID)
    }
    if err := s.Sessions.UpdateStatus(companyID, sessionID, model.StatusActive, []string{model.StatusPaused}); err != nil {
        return err
    }
    return s.enqueue(ctx, sess, 0)
}

// Cancel is permanent: a cancelled session is never resumed.
func (s *SessionService) Cancel(ctx context.Context, companyID, sessionID string) error {
    return s.Sessions.UpdateStatus(companyID, sessionID, model.StatusCancelled, AllowedFrom(model.StatusCancelled))
}

// Retry creates a brand-new session scoped to the original's transient
// failures. Config and lead source type are inherited; losing either would
// make the new worker look in the wrong source table.
func (s *SessionService) Retry(ctx context.Context, companyID, sessionID string) (*RetryResult, error) {
    orig, err := s.Sessions.GetByID(companyID, sessionID)
    if err != nil {
        return nil, err
    }

    failures, err := s.Logs.ListFailed(sessionID)
    if err != nil {
        return nil, err
    }

    transient := []string{}
    for _, e := range failures {
        if !IsPermanentFailure(e.Reason, e.Error) {
            transient = append(transient, e.TargetID)
        }
    }
    transient = dedupe(transient)
    if len(transient) == 0 {
        return nil, appErrors.NewNothingToRetry(sessionID)
    }

    retry := &model.CampaignSession{
        ID:             uuid.NewString(),
        CompanyID:      orig.CompanyID,
        Name:           orig.Name + " (retry)",
        Status:         model.StatusQueued,
        TargetIDs:      transient,
        LeadSourceType: orig.LeadSourceType,
        Config:         orig.Config,
    }
    if err := s.Sessions.Create(retry); err != nil {
        return nil, fmt.Errorf("failed to create retry session: %w", err)
    }

    if orig.LeadSourceType == model.SourceImport {
        if err := s.Leads.CopyImportTargets(orig.ID, retry.ID, transient); err != nil {
            return nil, fmt.Errorf("failed to copy import snapshot: %w", err)
        }
    }

    if err := s.enqueue(ctx, retry, 0); err != nil {
        return nil, err
    }

    return &RetryResult{NewSessionID: retry.ID, TargetCount: len(transient)}, nil
}

// ListSessions fetches sessions with pagination
func (s *SessionService) ListSessions(companyID string, page, pageSize int, channel, status string) ([]model.CampaignSession, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    ptrs, total, err := s.Sessions.ListSessions(companyID, offset, pageSize, channel, status)
    if err != nil {
        return nil, nil, err
    }

    sessions := make([]model.CampaignSession, len(ptrs))
    for i, c := range ptrs {
        sessions[i] = *c
    }

    totalPages := (total + pageSize - 1) / pageSize
    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
        "total_pages": totalPages,
    }

    return sessions, pagination, nil
}

// GetSessionDetails returns the session document plus log stats.
func (s *SessionService) GetSessionDetails(companyID, sessionID string) (*SessionDetails, error) {
    sess, err := s.Sessions.GetByID(companyID, sessionID)
    if err != nil {
        return nil, err
    }

    stats, err := s.Logs.CountByStatus(sessionID)
    if err != nil {
        return nil, err
    }
    stats["total"] = sess.Progress.TotalCount
    stats["pending"] = sess.Progress.TotalCount - sess.Progress.ProcessedCount

    return &SessionDetails{Session: sess, Stats: stats}, nil
}

// RenderPreview renders the session's template for one target without
// sending anything.
func (s *SessionService) RenderPreview(companyID, sessionID, targetID string, overrideTemplate *string) (string, error) {
    sess, err := s.Sessions.GetByID(companyID, sessionID)
    if err != nil {
        return "", err
    }

    lead, err := s.Leads.GetLead(sess.LeadSourceType, companyID, sessionID, targetID)
    if err != nil {
        return "", err
    }
    if lead == nil {
        return "", fmt.Errorf("target not found")
    }

    template := sess.Config.MessageTemplate
    if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
        template = *overrideTemplate
    }

    companyName := ""
    if profile, err := s.Companies.GetProfile(companyID); err == nil && profile != nil {
        companyName = profile.Name
    }

    return RenderTemplate(template, map[string]string{
        "driver_name":  lead.Name,
        "company_name": companyName,
        "sender_name":  sess.Config.SenderName,
    }), nil
}
