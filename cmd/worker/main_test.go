package main

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestRetryCountFromHeaders(t *testing.T) {
	assert.Equal(t, int32(0), retryCount(nil))
	assert.Equal(t, int32(0), retryCount(amqp.Table{}))
	assert.Equal(t, int32(2), retryCount(amqp.Table{"x-retry-count": int32(2)}))
	// A malformed header counts as a fresh delivery rather than panicking.
	assert.Equal(t, int32(0), retryCount(amqp.Table{"x-retry-count": "2"}))
}

func TestRetryCounterCapsRedelivery(t *testing.T) {
	// Walk the counter the way the consumer loop does: each failed run
	// republishes with attempts+1 until the cap, then the job is dropped.
	headers := amqp.Table(nil)
	deliveries := 0
	for {
		deliveries++
		attempts := retryCount(headers) + 1
		if attempts >= maxDeliveryAttempts {
			break
		}
		headers = amqp.Table{"x-retry-count": attempts}
	}
	assert.Equal(t, maxDeliveryAttempts, deliveries)
}
