package repository

import (
    "database/sql"
    "time"

    "github.com/fleetrecruit/outreach-backend/internal/model"
)

// LogRepositoryInterface is the idempotency ledger: append-once per
// (session, target), read back only by the stats and retry paths.
type LogRepositoryInterface interface {
    Append(e *model.CampaignLogEntry) (bool, error)
    Exists(sessionID, targetID string) (bool, error)
    ListFailed(sessionID string) ([]*model.CampaignLogEntry, error)
    CountByStatus(sessionID string) (map[string]int, error)
}

type LogRepository struct {
    DB *sql.DB
}

// Append inserts the entry unless one already exists for the same target.
// Returns false when the entry was already there; the row is never updated.
func (r *LogRepository) Append(e *model.CampaignLogEntry) (bool, error) {
    e.CreatedAt = time.Now()
    query := `
        INSERT INTO campaign_logs
        (session_id, target_id, lead_id, recipient_name, recipient_identity, status, reason, error, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (session_id, target_id) DO NOTHING
    `
    res, err := r.DB.Exec(query,
        e.SessionID, e.TargetID, e.LeadID, e.RecipientName, e.RecipientIdentity,
        e.Status, e.Reason, e.Error, e.CreatedAt,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// Exists is the O(1) idempotency probe: a present row means "do not resend".
func (r *LogRepository) Exists(sessionID, targetID string) (bool, error) {
    query := `
        SELECT 1 FROM campaign_logs
        WHERE session_id = $1 AND target_id = $2
        LIMIT 1
    `
    var tmp int
    err := r.DB.QueryRow(query, sessionID, targetID).Scan(&tmp)
    if err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }
    return true, nil
}

func (r *LogRepository) ListFailed(sessionID string) ([]*model.CampaignLogEntry, error) {
    query := `
        SELECT session_id, target_id, lead_id, recipient_name, recipient_identity, status, reason, error, created_at
        FROM campaign_logs
        WHERE session_id = $1 AND status = 'failed'
        ORDER BY created_at
    `
    rows, err := r.DB.Query(query, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    entries := []*model.CampaignLogEntry{}
    for rows.Next() {
        e := &model.CampaignLogEntry{}
        if err := rows.Scan(
            &e.SessionID, &e.TargetID, &e.LeadID, &e.RecipientName, &e.RecipientIdentity,
            &e.Status, &e.Reason, &e.Error, &e.CreatedAt,
        ); err != nil {
            return nil, err
        }
        entries = append(entries, e)
    }
    return entries, rows.Err()
}

func (r *LogRepository) CountByStatus(sessionID string) (map[string]int, error) {
    query := `SELECT status, COUNT(*) FROM campaign_logs WHERE session_id=$1 GROUP BY status`
    rows, err := r.DB.Query(query, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := map[string]int{model.LogDelivered: 0, model.LogFailed: 0}
    for rows.Next() {
        var status string
        var count int
        if err := rows.Scan(&status, &count); err != nil {
            return nil, err
        }
        stats[status] = count
    }
    return stats, rows.Err()
}

var _ LogRepositoryInterface = (*LogRepository)(nil)
