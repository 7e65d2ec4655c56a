package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ingressos/disparador-backend/internal/config"
	"github.com/ingressos/disparador-backend/internal/controller"
	"github.com/ingressos/disparador-backend/internal/db"
	"github.com/ingressos/disparador-backend/internal/distlock"
	"github.com/ingressos/disparador-backend/internal/messaging"
	"github.com/ingressos/disparador-backend/internal/queue"
	"github.com/ingressos/disparador-backend/internal/repository"
	"github.com/ingressos/disparador-backend/internal/service"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	customerRepo := &repository.CustomerRepository{DB: conn}
	sendRepo := &repository.SendRepository{DB: conn}
	historyRepo := &repository.HistoryRepository{DB: conn}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		CustomerRepo: customerRepo,
		SendRepo:     sendRepo,
		RecipientCap: cfg.RecipientCap,
		MaxAttempts:  cfg.MaxAttempts,
		Log:          log,
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	var broker *queue.Broker
	if cfg.AMQPURL != "" {
		broker, err = queue.Dial(cfg.AMQPURL, cfg.OutcomeQueue, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to AMQP broker")
		}
		defer broker.Close()
	}

	dispatcher := &service.Dispatcher{
		CampaignRepo: campaignRepo,
		SendRepo:     sendRepo,
		HistoryRepo:  historyRepo,
		Campaigns:    campaignService,
		Sender:       messaging.NewWebhookClient(cfg.WebhookURL, cfg.WebhookTimeout),
		Outcomes:     broker,
		Lock:         distlock.New(redisClient, conn, "dispatch:run", cfg.LockTTL),
		MaxAttempts:  cfg.MaxAttempts,
		ClaimTTL:     cfg.ClaimTTL,
		HistoryAhead: cfg.HistoryAhead,
		Log:          log,
	}

	campaignController := &controller.CampaignController{Service: campaignService, Log: log}
	dispatchController := &controller.DispatchController{Dispatcher: dispatcher, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", controller.Health)

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Put("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)

	r.Get("/customers/eligible", campaignController.EligibleRecipients)

	r.Post("/dispatch/run", dispatchController.Run)

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
