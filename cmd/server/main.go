// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/fleetrecruit/outreach-backend/internal/auth"
	"github.com/fleetrecruit/outreach-backend/internal/config"
	"github.com/fleetrecruit/outreach-backend/internal/controller"
	"github.com/fleetrecruit/outreach-backend/internal/db"
	"github.com/fleetrecruit/outreach-backend/internal/dispatch"
	"github.com/fleetrecruit/outreach-backend/internal/handler"
	"github.com/fleetrecruit/outreach-backend/internal/provider"
	"github.com/fleetrecruit/outreach-backend/internal/repository"
	"github.com/fleetrecruit/outreach-backend/internal/service"
	"github.com/fleetrecruit/outreach-backend/internal/suppression"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	// Init DB
	db.Init()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	suppressionList := suppression.NewRedisList(redisClient)

	sessionRepo := &repository.SessionRepository{DB: db.DB}
	logRepo := &repository.LogRepository{DB: db.DB}
	leadRepo := &repository.LeadRepository{DB: db.DB}
	companyRepo := &repository.CompanyRepository{DB: db.DB}

	providers := provider.NewDevRegistry()

	// Dispatch: RabbitMQ when configured, in-process otherwise.
	var dispatcher dispatch.Dispatcher
	var memDispatcher *dispatch.InMemoryDispatcher
	if cfg.AmqpURL != "" {
		conn, err := amqp.Dial(cfg.AmqpURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			log.Fatal("Failed to open a channel:", err)
		}
		amqpDispatcher, err := dispatch.NewAMQPDispatcher(ch, cfg.ReenqueueDelay)
		if err != nil {
			log.Fatal("Failed to set up dispatch queues:", err)
		}
		dispatcher = amqpDispatcher
	} else {
		log.Println("⚠️ AMQP_URL not set, using in-process dispatch")
		memDispatcher = dispatch.NewInMemoryDispatcher()
		dispatcher = memDispatcher
	}

	worker := service.NewBatchWorker(
		sessionRepo, logRepo, leadRepo, companyRepo,
		suppressionList, providers, dispatcher,
		cfg.BatchSize, cfg.SendInterval, cfg.ReenqueueDelay,
	)
	if memDispatcher != nil {
		memDispatcher.SetHandler(func(job dispatch.Job) error {
			return worker.Run(context.Background(), job)
		})
	}

	sessionService := &service.SessionService{
		Sessions:   sessionRepo,
		Logs:       logRepo,
		Leads:      leadRepo,
		Companies:  companyRepo,
		Dispatcher: dispatcher,
		MaxTargets: cfg.MaxTargets,
	}

	var authorizer auth.Authorizer = &auth.DBAuthorizer{Companies: companyRepo}
	if cfg.DevMode {
		authorizer = auth.AllowAll{}
	}

	sessionController := &controller.SessionController{
		SessionService: sessionService,
		Authorizer:     authorizer,
	}

	workerHandler := handler.NewWorkerHandler(worker, cfg.DispatchToken, cfg.DevMode)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
	}))

	// Session routes
	r.Route("/companies/{companyID}/campaign-sessions", func(r chi.Router) {
		r.Post("/", sessionController.CreateSession)
		r.Get("/", sessionController.ListSessions)
		r.Get("/{id}", sessionController.GetSessionDetails)
		r.Post("/{id}/pause", sessionController.PauseSession)
		r.Post("/{id}/resume", sessionController.ResumeSession)
		r.Post("/{id}/cancel", sessionController.CancelSession)
		r.Post("/{id}/retry", sessionController.RetrySession)
		r.Post("/{id}/personalized-preview", sessionController.PersonalizedPreview)
	})

	// Trusted dispatch only
	r.Post("/internal/campaign-worker", workerHandler.HandleInvocation)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
