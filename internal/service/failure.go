// internal/service/failure.go
package service

import "strings"

// Failure reason codes, assigned at the point of failure. Retry
// classification works on these codes, not on free-text matching.
const (
    ReasonSuppressed    = "suppressed"
    ReasonInvalidNumber = "invalid_number"
    ReasonLandline      = "landline"
    ReasonUnreachable   = "unreachable"
    ReasonNoContact     = "no_contact"
    ReasonDataMissing   = "data_missing"
    ReasonProviderError = "provider_error"
)

// Permanent failures will reliably fail again; retry skips them. A missing
// phone or email is transient here: the lead record may gain one later.
var permanentReasons = map[string]bool{
    ReasonSuppressed:    true,
    ReasonInvalidNumber: true,
    ReasonLandline:      true,
    ReasonUnreachable:   true,
}

// permanentMarkers is the legacy fallback for log rows written before reason
// codes existed: a substring hit classifies the row as permanent.
var permanentMarkers = []string{
    "blacklist",
    "opt-out",
    "opted out",
    "invalid number",
    "landline",
    "unreachable",
}

// IsPermanentFailure classifies one failed log row. The reason code wins;
// the error text is only consulted when no code was recorded.
func IsPermanentFailure(reason, errText string) bool {
    if reason != "" {
        return permanentReasons[reason]
    }
    lower := strings.ToLower(errText)
    for _, marker := range permanentMarkers {
        if strings.Contains(lower, marker) {
            return true
        }
    }
    return false
}
