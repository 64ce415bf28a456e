package service_test

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/fleetrecruit/outreach-backend/internal/dispatch"
    appErrors "github.com/fleetrecruit/outreach-backend/internal/errors"
    "github.com/fleetrecruit/outreach-backend/internal/model"
    "github.com/fleetrecruit/outreach-backend/internal/provider"
    "github.com/fleetrecruit/outreach-backend/internal/repository"
)

// --- In-memory session store ---

type memSessionRepo struct {
    mu       sync.Mutex
    sessions map[string]*model.CampaignSession

    // pointerHistory records every cursor value ever written, per session.
    pointerHistory map[string][]int
}

func newMemSessionRepo() *memSessionRepo {
    return &memSessionRepo{
        sessions:       map[string]*model.CampaignSession{},
        pointerHistory: map[string][]int{},
    }
}

func copySession(s *model.CampaignSession) *model.CampaignSession {
    c := *s
    c.TargetIDs = append([]string(nil), s.TargetIDs...)
    return &c
}

func (r *memSessionRepo) Create(s *model.CampaignSession) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    s.CreatedAt = time.Now()
    if s.Status == "" {
        s.Status = model.StatusQueued
    }
    s.Progress.TotalCount = len(s.TargetIDs)
    r.sessions[s.ID] = copySession(s)
    r.pointerHistory[s.ID] = []int{0}
    return nil
}

func (r *memSessionRepo) get(companyID, sessionID string) (*model.CampaignSession, error) {
    s, ok := r.sessions[sessionID]
    if !ok || s.CompanyID != companyID {
        return nil, appErrors.NewSessionNotFound(sessionID)
    }
    return s, nil
}

func (r *memSessionRepo) GetByID(companyID, sessionID string) (*model.CampaignSession, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    s, err := r.get(companyID, sessionID)
    if err != nil {
        return nil, err
    }
    return copySession(s), nil
}

func (r *memSessionRepo) ListSessions(companyID string, offset, limit int, channel, status string) ([]*model.CampaignSession, int, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.CampaignSession{}
    for _, s := range r.sessions {
        if s.CompanyID != companyID {
            continue
        }
        if channel != "" && s.Config.Channel != channel {
            continue
        }
        if status != "" && s.Status != status {
            continue
        }
        out = append(out, copySession(s))
    }
    total := len(out)
    if offset > len(out) {
        offset = len(out)
    }
    out = out[offset:]
    if limit < len(out) {
        out = out[:limit]
    }
    return out, total, nil
}

func (r *memSessionRepo) ClaimBatch(companyID, sessionID string, batchSize int) (*repository.ClaimedBatch, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    s, err := r.get(companyID, sessionID)
    if err != nil {
        return nil, err
    }
    if s.Status != model.StatusActive {
        return &repository.ClaimedBatch{Session: copySession(s), Start: s.CurrentPointer, End: s.CurrentPointer}, nil
    }
    start := s.CurrentPointer
    end := start + batchSize
    if end > len(s.TargetIDs) {
        end = len(s.TargetIDs)
    }
    if end > start {
        s.CurrentPointer = end
        r.pointerHistory[sessionID] = append(r.pointerHistory[sessionID], end)
    }
    return &repository.ClaimedBatch{Session: copySession(s), Start: start, End: end}, nil
}

func (r *memSessionRepo) AddProgress(sessionID string, processed, success, failed int) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    s, ok := r.sessions[sessionID]
    if !ok {
        return appErrors.NewSessionNotFound(sessionID)
    }
    s.Progress.ProcessedCount += processed
    s.Progress.SuccessCount += success
    s.Progress.FailedCount += failed
    return nil
}

func (r *memSessionRepo) UpdateStatus(companyID, sessionID, status string, allowedFrom []string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    s, err := r.get(companyID, sessionID)
    if err != nil {
        return err
    }
    allowed := false
    for _, from := range allowedFrom {
        if s.Status == from {
            allowed = true
            break
        }
    }
    if !allowed {
        return appErrors.NewInvalidTransition(sessionID, s.Status, status)
    }
    s.Status = status
    now := time.Now()
    switch status {
    case model.StatusCompleted:
        s.CompletedAt = &now
    case model.StatusCancelled:
        s.CancelledAt = &now
    }
    return nil
}

func (r *memSessionRepo) SetFailed(sessionID, diagnostic string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    s, ok := r.sessions[sessionID]
    if !ok {
        return appErrors.NewSessionNotFound(sessionID)
    }
    if s.Status == model.StatusCompleted || s.Status == model.StatusCancelled {
        return nil
    }
    now := time.Now()
    s.Status = model.StatusFailed
    s.Error = diagnostic
    s.FailedAt = &now
    return nil
}

var _ repository.SessionRepositoryInterface = (*memSessionRepo)(nil)

// --- In-memory log store ---

type memLogRepo struct {
    mu      sync.Mutex
    entries map[string]map[string]*model.CampaignLogEntry
    order   map[string][]string
}

func newMemLogRepo() *memLogRepo {
    return &memLogRepo{
        entries: map[string]map[string]*model.CampaignLogEntry{},
        order:   map[string][]string{},
    }
}

func (r *memLogRepo) Append(e *model.CampaignLogEntry) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.entries[e.SessionID] == nil {
        r.entries[e.SessionID] = map[string]*model.CampaignLogEntry{}
    }
    if _, ok := r.entries[e.SessionID][e.TargetID]; ok {
        return false, nil
    }
    c := *e
    c.CreatedAt = time.Now()
    r.entries[e.SessionID][e.TargetID] = &c
    r.order[e.SessionID] = append(r.order[e.SessionID], e.TargetID)
    return true, nil
}

func (r *memLogRepo) Exists(sessionID, targetID string) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    _, ok := r.entries[sessionID][targetID]
    return ok, nil
}

func (r *memLogRepo) ListFailed(sessionID string) ([]*model.CampaignLogEntry, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.CampaignLogEntry{}
    for _, targetID := range r.order[sessionID] {
        e := r.entries[sessionID][targetID]
        if e.Status == model.LogFailed {
            c := *e
            out = append(out, &c)
        }
    }
    return out, nil
}

func (r *memLogRepo) CountByStatus(sessionID string) (map[string]int, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    stats := map[string]int{model.LogDelivered: 0, model.LogFailed: 0}
    for _, e := range r.entries[sessionID] {
        stats[e.Status]++
    }
    return stats, nil
}

func (r *memLogRepo) count(sessionID string) int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.entries[sessionID])
}

func (r *memLogRepo) entry(sessionID, targetID string) *model.CampaignLogEntry {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.entries[sessionID][targetID]
}

var _ repository.LogRepositoryInterface = (*memLogRepo)(nil)

// --- In-memory lead store ---

type memLeadRepo struct {
    mu       sync.Mutex
    leads    map[string]*model.Lead
    imports  map[string]map[string]model.ImportTarget
    resolved []string
}

func newMemLeadRepo() *memLeadRepo {
    return &memLeadRepo{
        leads:   map[string]*model.Lead{},
        imports: map[string]map[string]model.ImportTarget{},
    }
}

func (r *memLeadRepo) GetLead(sourceType, companyID, sessionID, targetID string) (*model.Lead, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if sourceType == model.SourceImport {
        t, ok := r.imports[sessionID][targetID]
        if !ok {
            return nil, nil
        }
        return &model.Lead{ID: t.TargetID, Name: t.Name, Phone: t.Phone, Email: t.Email}, nil
    }
    l, ok := r.leads[targetID]
    if !ok {
        return nil, nil
    }
    if sourceType != model.SourceGlobal && l.CompanyID != companyID {
        return nil, nil
    }
    c := *l
    return &c, nil
}

func (r *memLeadRepo) SaveImportTargets(rows []model.ImportTarget) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, t := range rows {
        if r.imports[t.SessionID] == nil {
            r.imports[t.SessionID] = map[string]model.ImportTarget{}
        }
        r.imports[t.SessionID][t.TargetID] = t
    }
    return nil
}

func (r *memLeadRepo) CopyImportTargets(fromSessionID, toSessionID string, targetIDs []string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.imports[toSessionID] == nil {
        r.imports[toSessionID] = map[string]model.ImportTarget{}
    }
    for _, id := range targetIDs {
        if t, ok := r.imports[fromSessionID][id]; ok {
            t.SessionID = toSessionID
            r.imports[toSessionID][id] = t
        }
    }
    return nil
}

func (r *memLeadRepo) ResolveTargets(companyID string, f repository.TargetFilters) ([]string, string, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    sourceType := f.SourceType
    if sourceType == "" {
        sourceType = model.SourceCompany
    }
    ids := append([]string(nil), r.resolved...)
    if f.Limit > 0 && len(ids) > f.Limit {
        ids = ids[:f.Limit]
    }
    return ids, sourceType, nil
}

var _ repository.LeadRepositoryInterface = (*memLeadRepo)(nil)

// --- Tenant profiles ---

type memCompanyRepo struct {
    profiles map[string]*model.CompanyProfile
}

func (r *memCompanyRepo) GetProfile(companyID string) (*model.CompanyProfile, error) {
    return r.profiles[companyID], nil
}

var _ repository.CompanyRepositoryInterface = (*memCompanyRepo)(nil)

// --- Suppression ---

type fakeSuppression struct {
    mu  sync.Mutex
    set map[string]bool
}

func newFakeSuppression() *fakeSuppression {
    return &fakeSuppression{set: map[string]bool{}}
}

func (s *fakeSuppression) IsSuppressed(ctx context.Context, companyID, identity string) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.set[companyID+"|"+identity], nil
}

func (s *fakeSuppression) Suppress(ctx context.Context, companyID, identity string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.set[companyID+"|"+identity] = true
    return nil
}

// --- Provider ---

type sentMessage struct {
    Recipient string
    Body      string
}

type fakeSender struct {
    mu      sync.Mutex
    sent    []sentMessage
    failFor map[string]error
}

func newFakeSender() *fakeSender {
    return &fakeSender{failFor: map[string]error{}}
}

func (s *fakeSender) failRecipient(recipient string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.failFor[recipient] = fmt.Errorf("provider rejected %s", recipient)
}

func (s *fakeSender) Send(ctx context.Context, recipient, body string, _ provider.SenderContext) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err, ok := s.failFor[recipient]; ok {
        return err
    }
    s.sent = append(s.sent, sentMessage{Recipient: recipient, Body: body})
    return nil
}

func (s *fakeSender) sentCount() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.sent)
}

// --- Dispatcher ---

type queuedJob struct {
    Job   dispatch.Job
    Delay time.Duration
}

type fakeDispatcher struct {
    mu      sync.Mutex
    jobs    []queuedJob
    failErr error
}

func (d *fakeDispatcher) setFailure(err error) {
    d.mu.Lock()
    defer d.mu.Unlock()
    d.failErr = err
}

func (d *fakeDispatcher) Enqueue(ctx context.Context, job dispatch.Job, delay time.Duration) error {
    d.mu.Lock()
    defer d.mu.Unlock()
    if d.failErr != nil {
        return d.failErr
    }
    d.jobs = append(d.jobs, queuedJob{Job: job, Delay: delay})
    return nil
}

func (d *fakeDispatcher) queued() []queuedJob {
    d.mu.Lock()
    defer d.mu.Unlock()
    return append([]queuedJob(nil), d.jobs...)
}
