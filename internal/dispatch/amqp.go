// internal/dispatch/amqp.go
package dispatch

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"
    "time"

    "github.com/streadway/amqp"
)

const (
    WorkQueue = "campaign_batches"

    // Re-enqueue jobs and scheduled sessions wait in separate queues.
    // RabbitMQ expires messages only at the head of a queue, so a
    // two-hour scheduled TTL parked at the head would hold back every
    // five-second re-enqueue job published behind it.
    reenqueueWaitQueue = "campaign_batches_wait"
    scheduledWaitQueue = "campaign_batches_wait_scheduled"
)

// AMQPDispatcher schedules worker invocations through RabbitMQ. Delayed jobs
// wait in a queue that dead-letters into the work queue, so the delay
// survives process restarts.
type AMQPDispatcher struct {
    Channel *amqp.Channel

    // reenqueueTTL is the queue-level TTL on the short wait queue. Every
    // message there shares it, so FIFO order equals expiry order and no
    // head-of-line blocking is possible.
    reenqueueTTL time.Duration
}

func NewAMQPDispatcher(ch *amqp.Channel, reenqueueDelay time.Duration) (*AMQPDispatcher, error) {
    if reenqueueDelay <= 0 {
        reenqueueDelay = 5 * time.Second
    }

    _, err := ch.QueueDeclare(
        WorkQueue,
        true,  // durable
        false, // delete when unused
        false, // exclusive
        false, // no-wait
        nil,   // arguments
    )
    if err != nil {
        return nil, fmt.Errorf("declare work queue: %w", err)
    }

    _, err = ch.QueueDeclare(
        reenqueueWaitQueue,
        true,
        false,
        false,
        false,
        amqp.Table{
            "x-dead-letter-exchange":    "",
            "x-dead-letter-routing-key": WorkQueue,
            "x-message-ttl":             reenqueueDelay.Milliseconds(),
        },
    )
    if err != nil {
        return nil, fmt.Errorf("declare re-enqueue wait queue: %w", err)
    }

    // Scheduled sessions use per-message TTLs. A long head can only delay
    // other scheduled session starts, never in-flight re-enqueues.
    _, err = ch.QueueDeclare(
        scheduledWaitQueue,
        true,
        false,
        false,
        false,
        amqp.Table{
            "x-dead-letter-exchange":    "",
            "x-dead-letter-routing-key": WorkQueue,
        },
    )
    if err != nil {
        return nil, fmt.Errorf("declare scheduled wait queue: %w", err)
    }

    return &AMQPDispatcher{Channel: ch, reenqueueTTL: reenqueueDelay}, nil
}

// routeFor picks the destination queue and the per-message expiration for
// one delay. Short delays ride the queue-level TTL; only scheduled-session
// delays carry their own expiration.
func (d *AMQPDispatcher) routeFor(delay time.Duration) (queue, expiration string) {
    switch {
    case delay <= 0:
        return WorkQueue, ""
    case delay <= d.reenqueueTTL:
        return reenqueueWaitQueue, ""
    default:
        return scheduledWaitQueue, strconv.FormatInt(delay.Milliseconds(), 10)
    }
}

func (d *AMQPDispatcher) Enqueue(ctx context.Context, job Job, delay time.Duration) error {
    body, err := json.Marshal(job)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Body:         body,
    }

    queue, expiration := d.routeFor(delay)
    if expiration != "" {
        pub.Expiration = expiration
    }

    return d.Channel.Publish(
        "",    // exchange
        queue, // routing key
        false, // mandatory
        false, // immediate
        pub,
    )
}

var _ Dispatcher = (*AMQPDispatcher)(nil)
