package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkarpov/flightbooking/config"
	"github.com/dkarpov/flightbooking/internal/bootstrap"
	"github.com/dkarpov/flightbooking/internal/cache"
	"github.com/dkarpov/flightbooking/internal/kafka"
	"github.com/dkarpov/flightbooking/internal/repository"
	"github.com/dkarpov/flightbooking/internal/seed"
	"github.com/dkarpov/flightbooking/internal/service/booking"
	"github.com/dkarpov/flightbooking/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
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

	var (
		ledger  repository.Ledger
		catalog repository.FlightCatalog
	)
	if cfg.Database.Host != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()
		ledger = repository.NewPGLedger(pool)
		catalog = repository.NewPGFlightCatalog(pool)
	} else {
		// Database-less mode: a small generated catalog and an in-process
		// ledger, enough for local development against the chat front end.
		log.Warn().Msg("no database configured, using in-memory inventory")
		memCatalog := repository.NewMemoryFlightCatalog(seed.GenerateFlights(1000)...)
		ledger = repository.NewMemoryLedger(memCatalog)
		catalog = memCatalog
	}

	var flightCache flights.Cache
	if cfg.Redis.Addr != "" {
		flightCache = cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.CatalogCacheTTL)*time.Second)
	}

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	flightService := flights.NewFlightService(catalog, flightCache)
	bookingService := booking.NewBookingService(
		ledger,
		catalog,
		producer,
		cfg.Kafka.BookingEventsTopic,
		cfg.Booking.MaxHoldTTL(),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithExpiryGrace(cfg.Booking.ExpiryGrace()),
	)

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
