// internal/model/lead.go
package model

// Lead is one recruiting prospect (driver) the engine can message.
type Lead struct {
    ID            string `db:"id" json:"id"`
    CompanyID     string `db:"company_id" json:"company_id"`
    ApplicationID string `db:"application_id" json:"application_id,omitempty"`
    Name          string `db:"name" json:"name"`
    Phone         string `db:"phone" json:"phone"`
    Email         string `db:"email" json:"email"`
}

// ImportTarget is a snapshot of one raw imported row, stored at session
// creation so the worker never depends on a live external table.
type ImportTarget struct {
    SessionID string `db:"session_id" json:"session_id"`
    TargetID  string `db:"target_id" json:"target_id"`
    Name      string `db:"name" json:"name"`
    Phone     string `db:"phone" json:"phone"`
    Email     string `db:"email" json:"email"`
}
