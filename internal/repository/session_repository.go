package repository

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/lib/pq"

    appErrors "github.com/fleetrecruit/outreach-backend/internal/errors"
    "github.com/fleetrecruit/outreach-backend/internal/model"
)

// ClaimedBatch is the result of one transactional cursor advance. Start/End
// delimit the half-open slice of the target list this invocation owns.
type ClaimedBatch struct {
    Session *model.CampaignSession
    Start   int
    End     int
}

// TargetIDs returns the claimed slice of the session's target list.
func (b *ClaimedBatch) TargetIDs() []string {
    if b.Session == nil || b.Start >= b.End {
        return nil
    }
    return b.Session.TargetIDs[b.Start:b.End]
}

type SessionRepositoryInterface interface {
    Create(s *model.CampaignSession) error
    GetByID(companyID, sessionID string) (*model.CampaignSession, error)
    ListSessions(companyID string, offset, limit int, channel, status string) ([]*model.CampaignSession, int, error)

    // Worker-side mutations
    ClaimBatch(companyID, sessionID string, batchSize int) (*ClaimedBatch, error)
    AddProgress(sessionID string, processed, success, failed int) error
    UpdateStatus(companyID, sessionID, status string, allowedFrom []string) error
    SetFailed(sessionID, diagnostic string) error
}

type SessionRepository struct {
    DB *sql.DB
}

const sessionColumns = `id, company_id, name, status, channel, message_template, subject, sender_name,
        lead_source_type, target_ids, current_pointer, total_count, processed_count, success_count,
        failed_count, error, scheduled_for, created_at, last_update_at, completed_at, cancelled_at, failed_at`

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*model.CampaignSession, error) {
    var s model.CampaignSession
    err := row.Scan(
        &s.ID, &s.CompanyID, &s.Name, &s.Status,
        &s.Config.Channel, &s.Config.MessageTemplate, &s.Config.Subject, &s.Config.SenderName,
        &s.LeadSourceType, pq.Array(&s.TargetIDs), &s.CurrentPointer,
        &s.Progress.TotalCount, &s.Progress.ProcessedCount, &s.Progress.SuccessCount, &s.Progress.FailedCount,
        &s.Error, &s.ScheduledFor, &s.CreatedAt, &s.LastUpdateAt,
        &s.CompletedAt, &s.CancelledAt, &s.FailedAt,
    )
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// ====================== Session CRUD ======================

func (r *SessionRepository) Create(s *model.CampaignSession) error {
    s.CreatedAt = time.Now()
    if s.Status == "" {
        s.Status = model.StatusQueued
    }
    s.Progress.TotalCount = len(s.TargetIDs)
    query := `
        INSERT INTO campaign_sessions
        (id, company_id, name, status, channel, message_template, subject, sender_name,
         lead_source_type, target_ids, current_pointer, total_count, scheduled_for, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, $13)
    `
    _, err := r.DB.Exec(query,
        s.ID, s.CompanyID, s.Name, s.Status,
        s.Config.Channel, s.Config.MessageTemplate, s.Config.Subject, s.Config.SenderName,
        s.LeadSourceType, pq.Array(s.TargetIDs), s.Progress.TotalCount,
        s.ScheduledFor, s.CreatedAt,
    )
    return err
}

func (r *SessionRepository) GetByID(companyID, sessionID string) (*model.CampaignSession, error) {
    query := `SELECT ` + sessionColumns + ` FROM campaign_sessions WHERE id=$1 AND company_id=$2`
    s, err := scanSession(r.DB.QueryRow(query, sessionID, companyID))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewSessionNotFound(sessionID)
        }
        return nil, err
    }
    return s, nil
}

func (r *SessionRepository) ListSessions(companyID string, offset, limit int, channel, status string) ([]*model.CampaignSession, int, error) {
    sessions := []*model.CampaignSession{}
    query := `SELECT ` + sessionColumns + ` FROM campaign_sessions WHERE company_id=$1`
    args := []interface{}{companyID}
    argPos := 2

    if channel != "" {
        query += fmt.Sprintf(" AND channel=$%d", argPos)
        args = append(args, channel)
        argPos++
    }
    if status != "" {
        query += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, status)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        s, err := scanSession(rows)
        if err != nil {
            return nil, 0, err
        }
        sessions = append(sessions, s)
    }

    // Count total
    countQuery := `SELECT COUNT(*) FROM campaign_sessions WHERE company_id=$1`
    argsCount := []interface{}{companyID}
    argPosCount := 2
    if channel != "" {
        countQuery += fmt.Sprintf(" AND channel=$%d", argPosCount)
        argsCount = append(argsCount, channel)
        argPosCount++
    }
    if status != "" {
        countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
        argsCount = append(argsCount, status)
    }

    var total int
    if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return sessions, total, nil
}

// ====================== Worker-side mutations ======================

// ClaimBatch atomically advances the cursor and returns the claimed slice.
// The cursor moves BEFORE any send happens: two overlapping invocations can
// never claim the same slice, because the second one observes the already
// advanced pointer inside its own transaction.
func (r *SessionRepository) ClaimBatch(companyID, sessionID string, batchSize int) (*ClaimedBatch, error) {
    tx, err := r.DB.Begin()
    if err != nil {
        return nil, err
    }
    defer tx.Rollback()

    query := `SELECT ` + sessionColumns + ` FROM campaign_sessions WHERE id=$1 AND company_id=$2 FOR UPDATE`
    s, err := scanSession(tx.QueryRow(query, sessionID, companyID))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewSessionNotFound(sessionID)
        }
        return nil, err
    }

    // Only an active session may claim work. The caller inspects the
    // returned status to decide what to do.
    if s.Status != model.StatusActive {
        return &ClaimedBatch{Session: s, Start: s.CurrentPointer, End: s.CurrentPointer}, tx.Commit()
    }

    start := s.CurrentPointer
    end := start + batchSize
    if end > len(s.TargetIDs) {
        end = len(s.TargetIDs)
    }

    if end > start {
        _, err = tx.Exec(
            `UPDATE campaign_sessions SET current_pointer=$1, last_update_at=NOW() WHERE id=$2`,
            end, sessionID,
        )
        if err != nil {
            return nil, err
        }
        s.CurrentPointer = end
    }

    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return &ClaimedBatch{Session: s, Start: start, End: end}, nil
}

// AddProgress is an increment-style update so overlapping batches can never
// lose counts to a stale read.
func (r *SessionRepository) AddProgress(sessionID string, processed, success, failed int) error {
    query := `
        UPDATE campaign_sessions
        SET processed_count = processed_count + $1,
            success_count   = success_count + $2,
            failed_count    = failed_count + $3,
            last_update_at  = NOW()
        WHERE id=$4
    `
    _, err := r.DB.Exec(query, processed, success, failed, sessionID)
    return err
}

// UpdateStatus flips the session status only when the current status is in
// allowedFrom; a zero-row update surfaces as ErrInvalidTransition.
func (r *SessionRepository) UpdateStatus(companyID, sessionID, status string, allowedFrom []string) error {
    query := `
        UPDATE campaign_sessions
        SET status=$1,
            last_update_at=NOW(),
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
        WHERE id=$2 AND company_id=$3 AND status = ANY($4)
    `
    res, err := r.DB.Exec(query, status, sessionID, companyID, pq.Array(allowedFrom))
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        current, err := r.GetByID(companyID, sessionID)
        if err != nil {
            return err
        }
        return appErrors.NewInvalidTransition(sessionID, current.Status, status)
    }
    return nil
}

// SetFailed is the dispatch-failure path: without re-dispatch the session has
// no way to make progress, so it is parked with a diagnostic for the UI.
// A concurrent cancel or completion wins; terminal statuses are never
// overwritten.
func (r *SessionRepository) SetFailed(sessionID, diagnostic string) error {
    query := `
        UPDATE campaign_sessions
        SET status='failed', error=$1, failed_at=NOW(), last_update_at=NOW()
        WHERE id=$2 AND status NOT IN ('completed','cancelled')
    `
    _, err := r.DB.Exec(query, diagnostic, sessionID)
    return err
}

var _ SessionRepositoryInterface = (*SessionRepository)(nil)
