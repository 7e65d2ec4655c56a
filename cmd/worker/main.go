package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ingressos/disparador-backend/internal/config"
	"github.com/ingressos/disparador-backend/internal/db"
	"github.com/ingressos/disparador-backend/internal/distlock"
	"github.com/ingressos/disparador-backend/internal/messaging"
	"github.com/ingressos/disparador-backend/internal/queue"
	"github.com/ingressos/disparador-backend/internal/repository"
	"github.com/ingressos/disparador-backend/internal/service"
)

// The worker is the AMQP variant of the trigger boundary: an external
// scheduler publishes tick messages, each of which drives one dispatcher
// invocation. Row-state plus the run lock keep it safe to run alongside the
// HTTP trigger.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("component", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the worker")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	broker, err := queue.Dial(cfg.AMQPURL, cfg.OutcomeQueue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to AMQP broker")
	}
	defer broker.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", cfg.TickQueue).Msg("worker consuming ticks")
	err = broker.ConsumeTicks(ctx, cfg.TickQueue, cfg.PrefetchCount, func(ctx context.Context) error {
		summary, err := dispatcher.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("campaigns", summary.CampaignsProcessed).
			Int("sends", summary.SendsProcessed).
			Msg("tick processed")
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("tick consumer stopped")
	}
	log.Info().Msg("worker shut down")
}
