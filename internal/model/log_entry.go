// internal/model/log_entry.go
package model

import "time"

// Log entry outcomes
const (
    LogDelivered = "delivered"
    LogFailed    = "failed"
)

// CampaignLogEntry records the outcome of one send attempt. At most one
// entry exists per (session, target); its existence means "do not resend".
type CampaignLogEntry struct {
    SessionID         string    `db:"session_id" json:"session_id"`
    TargetID          string    `db:"target_id" json:"target_id"`
    LeadID            string    `db:"lead_id" json:"lead_id"`
    RecipientName     string    `db:"recipient_name" json:"recipient_name"`
    RecipientIdentity string    `db:"recipient_identity" json:"recipient_identity"`
    Status            string    `db:"status" json:"status"` // delivered, failed
    Reason            string    `db:"reason" json:"reason,omitempty"`
    Error             string    `db:"error,omitempty" json:"error,omitempty"`
    CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
