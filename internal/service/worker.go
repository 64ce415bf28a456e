// internal/service/worker.go
package service

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/fleetrecruit/outreach-backend/internal/dispatch"
    appErrors "github.com/fleetrecruit/outreach-backend/internal/errors"
    "github.com/fleetrecruit/outreach-backend/internal/model"
    "github.com/fleetrecruit/outreach-backend/internal/provider"
    "github.com/fleetrecruit/outreach-backend/internal/repository"
    "github.com/fleetrecruit/outreach-backend/internal/suppression"
)

// BatchWorker processes one claimed slice of a session's target list per
// invocation, then re-enqueues itself while work remains. The dispatch layer
// may deliver the same job more than once and nothing double-sends: the
// cursor advance is transactional and the log is append-once.
type BatchWorker struct {
    Sessions    repository.SessionRepositoryInterface
    Logs        repository.LogRepositoryInterface
    Leads       repository.LeadRepositoryInterface
    Companies   repository.CompanyRepositoryInterface
    Suppression suppression.List
    Providers   *provider.Registry
    Dispatcher  dispatch.Dispatcher

    BatchSize      int
    SendInterval   time.Duration
    ReenqueueDelay time.Duration

    // Sleep is swappable so tests do not pay the send cadence.
    Sleep func(time.Duration)
}

func NewBatchWorker(
    sessions repository.SessionRepositoryInterface,
    logs repository.LogRepositoryInterface,
    leads repository.LeadRepositoryInterface,
    companies repository.CompanyRepositoryInterface,
    supp suppression.List,
    providers *provider.Registry,
    dispatcher dispatch.Dispatcher,
    batchSize int,
    sendInterval, reenqueueDelay time.Duration,
) *BatchWorker {
    return &BatchWorker{
        Sessions:       sessions,
        Logs:           logs,
        Leads:          leads,
        Companies:      companies,
        Suppression:    supp,
        Providers:      providers,
        Dispatcher:     dispatcher,
        BatchSize:      batchSize,
        SendInterval:   sendInterval,
        ReenqueueDelay: reenqueueDelay,
        Sleep:          time.Sleep,
    }
}

// Run handles one worker invocation.
func (w *BatchWorker) Run(ctx context.Context, job dispatch.Job) error {
    sess, err := w.Sessions.GetByID(job.CompanyID, job.SessionID)
    if err != nil {
        var notFound *appErrors.ErrSessionNotFound
        if errors.As(err, &notFound) {
            log.Println("⚠️ worker invoked for missing session:", job.SessionID)
            return nil
        }
        return err
    }

    switch sess.Status {
    case model.StatusQueued, model.StatusScheduled:
        // First invocation: activate. Losing this race to a pause or cancel
        // that arrived in the meantime is a clean no-op.
        if err := w.Sessions.UpdateStatus(job.CompanyID, job.SessionID, model.StatusActive, AllowedFrom(model.StatusActive)); err != nil {
            var invalid *appErrors.ErrInvalidTransition
            if errors.As(err, &invalid) {
                log.Printf("⏸️ session %s is %s, not starting", job.SessionID, invalid.From)
                return nil
            }
            return err
        }
    case model.StatusActive:
        // Re-entry from a previous batch.
    default:
        // Paused, cancelled, completed or failed sessions are only ever
        // re-entered via an explicit resume, which re-enqueues on its own.
        log.Printf("⏸️ session %s is %s, nothing to do", job.SessionID, sess.Status)
        return nil
    }

    batch, err := w.Sessions.ClaimBatch(job.CompanyID, job.SessionID, w.BatchSize)
    if err != nil {
        return err
    }
    sess = batch.Session
    if sess.Status != model.StatusActive {
        // Status flipped between the activation above and the claim.
        log.Printf("⏸️ session %s became %s before claiming", job.SessionID, sess.Status)
        return nil
    }
    if batch.Start >= batch.End {
        // Pointer already at the end of the target list.
        return w.complete(job)
    }

    sender, err := w.Providers.ForChannel(sess.Config.Channel)
    if err != nil {
        diag := fmt.Sprintf("no provider adapter: %v", err)
        if ferr := w.Sessions.SetFailed(sess.ID, diag); ferr != nil {
            log.Println("⚠️ failed to mark session failed:", ferr)
        }
        return fmt.Errorf("%s", diag)
    }

    // Shared per-batch resources: tenant naming is resolved once, not per
    // message.
    companyName, senderName := w.resolveSenderProfile(sess)

    for _, targetID := range sess.TargetIDs[batch.Start:batch.End] {
        iterStart := time.Now()

        processed, err := w.Logs.Exists(sess.ID, targetID)
        if err != nil {
            log.Println("⚠️ idempotency probe failed:", err)
        }
        if processed {
            // Already handled by a prior attempt at this slice.
            continue
        }

        entry := w.processTarget(ctx, sess, targetID, sender, companyName, senderName)

        if _, err := w.Logs.Append(entry); err != nil {
            // One bad write must not stall the rest of the batch.
            log.Println("⚠️ failed to append campaign log:", err)
        }

        succ, fail := 0, 1
        if entry.Status == model.LogDelivered {
            succ, fail = 1, 0
        }
        if err := w.Sessions.AddProgress(sess.ID, 1, succ, fail); err != nil {
            log.Println("⚠️ failed to update progress:", err)
        }

        // Throttle: every iteration takes at least the configured interval
        // of wall-clock time, however fast the provider answered.
        if elapsed := time.Since(iterStart); elapsed < w.SendInterval {
            w.Sleep(w.SendInterval - elapsed)
        }
    }

    // Freshness check: a pause or cancel that arrived mid-batch lets the
    // claimed batch finish but stops any further scheduling.
    fresh, err := w.Sessions.GetByID(job.CompanyID, job.SessionID)
    if err != nil {
        return err
    }
    if fresh.Status != model.StatusActive {
        log.Printf("🛑 session %s is now %s, not rescheduling", job.SessionID, fresh.Status)
        return nil
    }

    if batch.End >= len(sess.TargetIDs) {
        return w.complete(job)
    }

    if err := w.Dispatcher.Enqueue(ctx, job, w.ReenqueueDelay); err != nil {
        diag := fmt.Sprintf("failed to schedule next batch: %v", err)
        if ferr := w.Sessions.SetFailed(job.SessionID, diag); ferr != nil {
            log.Println("⚠️ failed to mark session failed:", ferr)
        }
        return fmt.Errorf("%s", diag)
    }
    return nil
}

func (w *BatchWorker) complete(job dispatch.Job) error {
    err := w.Sessions.UpdateStatus(job.CompanyID, job.SessionID, model.StatusCompleted, AllowedFrom(model.StatusCompleted))
    if err != nil {
        var invalid *appErrors.ErrInvalidTransition
        if errors.As(err, &invalid) {
            // Someone cancelled in the same instant; their status wins.
            return nil
        }
        return err
    }
    log.Println("✅ session completed:", job.SessionID)
    return nil
}

func (w *BatchWorker) resolveSenderProfile(sess *model.CampaignSession) (companyName, senderName string) {
    senderName = sess.Config.SenderName
    profile, err := w.Companies.GetProfile(sess.CompanyID)
    if err != nil {
        log.Println("⚠️ failed to load tenant profile:", err)
        return "", senderName
    }
    if profile == nil {
        return "", senderName
    }
    if senderName == "" {
        senderName = profile.SenderName
    }
    return profile.Name, senderName
}

// processTarget attempts one send and returns the log entry describing the
// outcome. It never returns an error: every failure is captured in the entry
// and the batch moves on.
func (w *BatchWorker) processTarget(ctx context.Context, sess *model.CampaignSession, targetID string, sender provider.Sender, companyName, senderName string) *model.CampaignLogEntry {
    entry := &model.CampaignLogEntry{
        SessionID: sess.ID,
        TargetID:  targetID,
        Status:    model.LogFailed,
    }

    lead, err := w.Leads.GetLead(sess.LeadSourceType, sess.CompanyID, sess.ID, targetID)
    if err != nil {
        entry.Reason = ReasonDataMissing
        entry.Error = fmt.Sprintf("failed to load target data: %v", err)
        return entry
    }
    if lead == nil {
        entry.Reason = ReasonDataMissing
        entry.Error = "target data missing"
        return entry
    }
    entry.LeadID = lead.ID
    entry.RecipientName = lead.Name

    identity := lead.Phone
    missingMsg := "no valid phone on record"
    if sess.Config.Channel == model.ChannelEmail {
        identity = lead.Email
        missingMsg = "no valid email on record"
    }
    if identity == "" {
        entry.Reason = ReasonNoContact
        entry.Error = missingMsg
        return entry
    }
    entry.RecipientIdentity = identity

    suppressed, err := w.Suppression.IsSuppressed(ctx, sess.CompanyID, identity)
    if err != nil {
        log.Println("⚠️ suppression check failed:", err)
    }
    if suppressed {
        entry.Reason = ReasonSuppressed
        entry.Error = "recipient identity is blacklisted"
        return entry
    }

    body := RenderTemplate(sess.Config.MessageTemplate, map[string]string{
        "driver_name":  lead.Name,
        "company_name": companyName,
        "sender_name":  senderName,
    })

    sctx := provider.SenderContext{
        CompanyID:  sess.CompanyID,
        SenderName: senderName,
        Subject:    sess.Config.Subject,
    }
    if err := sender.Send(ctx, identity, body, sctx); err != nil {
        entry.Reason = ReasonProviderError
        entry.Error = err.Error()
        return entry
    }

    entry.Status = model.LogDelivered
    return entry
}
