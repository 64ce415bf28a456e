// internal/model/session.go
package model

import "time"

// Session statuses. Completed, cancelled and failed are terminal.
const (
    StatusQueued    = "queued"
    StatusScheduled = "scheduled"
    StatusActive    = "active"
    StatusPaused    = "paused"
    StatusCancelled = "cancelled"
    StatusCompleted = "completed"
    StatusFailed    = "failed"
)

// Send channels
const (
    ChannelSMS   = "sms"
    ChannelEmail = "email"
)

// Lead source types: which backing table a session's target IDs live in.
const (
    SourceGlobal      = "global"
    SourceCompany     = "company"
    SourceApplication = "application"
    SourceImport      = "import"
)

// SendConfig is the immutable send configuration captured at creation time.
type SendConfig struct {
    Channel         string `db:"channel" json:"channel"`
    MessageTemplate string `db:"message_template" json:"message_template"`
    Subject         string `db:"subject" json:"subject,omitempty"`
    SenderName      string `db:"sender_name" json:"sender_name"`
}

// Progress counters. ProcessedCount == SuccessCount + FailedCount at rest.
type Progress struct {
    TotalCount     int `db:"total_count" json:"total_count"`
    ProcessedCount int `db:"processed_count" json:"processed_count"`
    SuccessCount   int `db:"success_count" json:"success_count"`
    FailedCount    int `db:"failed_count" json:"failed_count"`
}

type CampaignSession struct {
    ID             string     `db:"id" json:"id"`
    CompanyID      string     `db:"company_id" json:"company_id"`
    Name           string     `db:"name" json:"name"`
    Status         string     `db:"status" json:"status"`
    TargetIDs      []string   `db:"target_ids" json:"target_ids"`
    CurrentPointer int        `db:"current_pointer" json:"current_pointer"`
    LeadSourceType string     `db:"lead_source_type" json:"lead_source_type"`
    Config         SendConfig `json:"config"`
    Progress       Progress   `json:"progress"`
    Error          string     `db:"error" json:"error,omitempty"`
    ScheduledFor   *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
    CreatedAt      time.Time  `db:"created_at" json:"created_at"`
    LastUpdateAt   *time.Time `db:"last_update_at" json:"last_update_at,omitempty"`
    CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
    CancelledAt    *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
    FailedAt       *time.Time `db:"failed_at" json:"failed_at,omitempty"`
}

// IsTerminal reports whether the session can never make progress again.
func (s *CampaignSession) IsTerminal() bool {
    return s.Status == StatusCompleted || s.Status == StatusCancelled || s.Status == StatusFailed
}

// Remaining is the number of targets not yet claimed by any batch.
func (s *CampaignSession) Remaining() int {
    if s.CurrentPointer >= len(s.TargetIDs) {
        return 0
    }
    return len(s.TargetIDs) - s.CurrentPointer
}
