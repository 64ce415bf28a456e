package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/fleetrecruit/outreach-backend/internal/config"
	"github.com/fleetrecruit/outreach-backend/internal/db"
	"github.com/fleetrecruit/outreach-backend/internal/dispatch"
	"github.com/fleetrecruit/outreach-backend/internal/provider"
	"github.com/fleetrecruit/outreach-backend/internal/repository"
	"github.com/fleetrecruit/outreach-backend/internal/service"
	"github.com/fleetrecruit/outreach-backend/internal/suppression"
)

const maxDeliveryAttempts = 3

// retryCount reads the delivery's retry counter; a fresh delivery carries no
// header.
func retryCount(headers amqp.Table) int32 {
	if headers == nil {
		return 0
	}
	if n, ok := headers["x-retry-count"].(int32); ok {
		return n
	}
	return 0
}

// The worker process drains the dispatch queue: each delivery is one batch
// invocation for one session.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	db.Init()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	suppressionList := suppression.NewRedisList(redisClient)

	sessionRepo := &repository.SessionRepository{DB: db.DB}
	logRepo := &repository.LogRepository{DB: db.DB}
	leadRepo := &repository.LeadRepository{DB: db.DB}
	companyRepo := &repository.CompanyRepository{DB: db.DB}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(cfg.AmqpURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	dispatcher, err := dispatch.NewAMQPDispatcher(ch, cfg.ReenqueueDelay)
	if err != nil {
		log.Fatal("Failed to set up dispatch queues:", err)
	}

	worker := service.NewBatchWorker(
		sessionRepo, logRepo, leadRepo, companyRepo,
		suppressionList, provider.NewDevRegistry(), dispatcher,
		cfg.BatchSize, cfg.SendInterval, cfg.ReenqueueDelay,
	)

	msgs, err := ch.Consume(
		dispatch.WorkQueue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job dispatch.Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			// Process one batch
			err := worker.Run(context.Background(), job)
			if err != nil {
				log.Println("Failed to run batch:", err)
				// Nack would requeue the original delivery unchanged, so
				// the retry counter travels on a republished copy instead.
				attempts := retryCount(d.Headers) + 1
				if attempts < maxDeliveryAttempts {
					if perr := ch.Publish("", dispatch.WorkQueue, false, false, amqp.Publishing{
						ContentType:  "application/json",
						DeliveryMode: amqp.Persistent,
						Headers:      amqp.Table{"x-retry-count": attempts},
						Body:         d.Body,
					}); perr != nil {
						log.Println("Failed to requeue job:", perr)
						d.Nack(false, true)
						continue
					}
					log.Printf("Job failed (attempt %d/%d), requeued: %+v\n", attempts, maxDeliveryAttempts, job)
				} else {
					log.Printf("Job permanently failed after %d attempts: %+v\n", maxDeliveryAttempts, job)
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for batch jobs...")
	<-forever
}
