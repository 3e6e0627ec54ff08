package main

import (
	"errors"
	"os"
	"time"

	"github.com/dkarpov/flightbooking/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		log.Fatal().Msg("migration direction (up/down) is required")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	mig, err := migrate.New("file://migrations", cfg.Database.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("create migrate instance")
	}
	defer mig.Close()

	switch os.Args[1] {
	case "up":
		err = mig.Up()
	case "down":
		err = mig.Steps(-1)
	default:
		log.Fatal().Str("direction", os.Args[1]).Msg("invalid direction, use 'up' or 'down'")
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("run migrations")
	}
	log.Info().Msg("migrations completed")
}
