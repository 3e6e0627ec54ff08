package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkarpov/flightbooking/config"
	"github.com/dkarpov/flightbooking/internal/email"
	"github.com/dkarpov/flightbooking/internal/kafka"
	"github.com/dkarpov/flightbooking/internal/repository"
	"github.com/dkarpov/flightbooking/internal/service/booking"
	"github.com/dkarpov/flightbooking/internal/sweeper"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	ledger := repository.NewPGLedger(pool)
	catalog := repository.NewPGFlightCatalog(pool)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingService := booking.NewBookingService(
		ledger,
		catalog,
		producer,
		cfg.Kafka.BookingEventsTopic,
		cfg.Booking.MaxHoldTTL(),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithExpiryGrace(cfg.Booking.ExpiryGrace()),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Warn().Err(err).Msg("skipping undecodable notification event")
				return nil
			}
			// One undeliverable notification must not stall the feed.
			if err := emailSender.Send(ctx, event); err != nil {
				log.Error().Err(err).Str("booking_id", event.BookingID).Msg("failed to deliver notification")
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("notification consumer stopped")
		}
	}()

	sweep := sweeper.New(bookingService, cfg.Worker.SweepInterval())
	log.Info().Dur("interval", cfg.Worker.SweepInterval()).Msg("starting expiration sweeper")
	if err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("sweeper stopped")
	}
}
