package repository

import (
    "database/sql"
    "fmt"

    "github.com/lib/pq"

    "github.com/fleetrecruit/outreach-backend/internal/model"
)

// TargetFilters is the narrow contract the target resolver consumes. The
// result list is deduplicated, ordered and capped.
type TargetFilters struct {
    SourceType string
    Location   string
    Limit      int
}

// LeadRepositoryInterface resolves target contact data per lead source type
// and owns the import-row snapshots.
type LeadRepositoryInterface interface {
    GetLead(sourceType, companyID, sessionID, targetID string) (*model.Lead, error)
    SaveImportTargets(rows []model.ImportTarget) error
    CopyImportTargets(fromSessionID, toSessionID string, targetIDs []string) error
    ResolveTargets(companyID string, f TargetFilters) ([]string, string, error)
}

// LeadRepository is the concrete implementation
type LeadRepository struct {
    DB *sql.DB
}

// GetLead fetches one target's contact data. Import sessions read the
// snapshot captured at creation; everything else reads the live leads table.
// A missing row returns (nil, nil), never an error.
func (r *LeadRepository) GetLead(sourceType, companyID, sessionID, targetID string) (*model.Lead, error) {
    if sourceType == model.SourceImport {
        return r.getImportLead(sessionID, targetID)
    }

    query := `SELECT id, company_id, application_id, name, phone, email FROM leads WHERE id = $1`
    args := []interface{}{targetID}
    switch sourceType {
    case model.SourceCompany:
        query += ` AND company_id = $2`
        args = append(args, companyID)
    case model.SourceApplication:
        query += ` AND company_id = $2 AND application_id <> ''`
        args = append(args, companyID)
    }

    var l model.Lead
    err := r.DB.QueryRow(query, args...).Scan(&l.ID, &l.CompanyID, &l.ApplicationID, &l.Name, &l.Phone, &l.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // not found
        }
        return nil, err
    }
    return &l, nil
}

func (r *LeadRepository) getImportLead(sessionID, targetID string) (*model.Lead, error) {
    query := `SELECT target_id, name, phone, email FROM import_targets WHERE session_id=$1 AND target_id=$2`
    var t model.ImportTarget
    err := r.DB.QueryRow(query, sessionID, targetID).Scan(&t.TargetID, &t.Name, &t.Phone, &t.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &model.Lead{ID: t.TargetID, Name: t.Name, Phone: t.Phone, Email: t.Email}, nil
}

// SaveImportTargets snapshots raw imported rows under their session.
func (r *LeadRepository) SaveImportTargets(rows []model.ImportTarget) error {
    query := `
        INSERT INTO import_targets (session_id, target_id, name, phone, email)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (session_id, target_id) DO NOTHING
    `
    for _, t := range rows {
        if _, err := r.DB.Exec(query, t.SessionID, t.TargetID, t.Name, t.Phone, t.Email); err != nil {
            return err
        }
    }
    return nil
}

// CopyImportTargets duplicates the snapshot rows for the listed targets under
// a new session, so a retry session stays self-contained.
func (r *LeadRepository) CopyImportTargets(fromSessionID, toSessionID string, targetIDs []string) error {
    query := `
        INSERT INTO import_targets (session_id, target_id, name, phone, email)
        SELECT $1, target_id, name, phone, email
        FROM import_targets
        WHERE session_id = $2 AND target_id = ANY($3)
        ON CONFLICT (session_id, target_id) DO NOTHING
    `
    _, err := r.DB.Exec(query, toSessionID, fromSessionID, pq.Array(targetIDs))
    return err
}

// ResolveTargets turns a filter spec into a deduplicated ordered ID list plus
// the source-type tag the worker will read contact data from.
func (r *LeadRepository) ResolveTargets(companyID string, f TargetFilters) ([]string, string, error) {
    sourceType := f.SourceType
    if sourceType == "" {
        sourceType = model.SourceCompany
    }
    if f.Limit <= 0 {
        return nil, "", fmt.Errorf("target resolver requires a positive cap")
    }

    query := `SELECT DISTINCT id FROM leads WHERE 1=1`
    args := []interface{}{}
    argPos := 1

    if sourceType != model.SourceGlobal {
        query += fmt.Sprintf(" AND company_id=$%d", argPos)
        args = append(args, companyID)
        argPos++
    }
    if sourceType == model.SourceApplication {
        query += " AND application_id <> ''"
    }
    if f.Location != "" {
        query += fmt.Sprintf(" AND location=$%d", argPos)
        args = append(args, f.Location)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY id LIMIT $%d", argPos)
    args = append(args, f.Limit)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()

    ids := []string{}
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, "", err
        }
        ids = append(ids, id)
    }
    return ids, sourceType, rows.Err()
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
