package service_test

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/fleetrecruit/outreach-backend/internal/service"
)

func TestIsPermanentFailure(t *testing.T) {
    cases := []struct {
        name    string
        reason  string
        errText string
        want    bool
    }{
        {"suppressed is permanent", service.ReasonSuppressed, "", true},
        {"invalid number is permanent", service.ReasonInvalidNumber, "", true},
        {"landline is permanent", service.ReasonLandline, "", true},
        {"unreachable is permanent", service.ReasonUnreachable, "", true},
        {"missing contact is transient", service.ReasonNoContact, "no valid phone on record", false},
        {"missing lead data is transient", service.ReasonDataMissing, "", false},
        {"provider error is transient", service.ReasonProviderError, "gateway timeout", false},
        {"reason code wins over error text", service.ReasonProviderError, "recipient is on the blacklist", false},
        {"legacy blacklist marker", "", "Number is on the blacklist", true},
        {"legacy opt-out marker", "", "customer opted out last week", true},
        {"legacy landline marker", "", "destination is a LANDLINE", true},
        {"legacy row without markers", "", "timeout talking to upstream", false},
        {"empty row defaults to transient", "", "", false},
    }

    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, service.IsPermanentFailure(tc.reason, tc.errText))
        })
    }
}
