package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/dkarpov/flightbooking/config"
	"github.com/dkarpov/flightbooking/internal/seed"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Seeds the flight catalog. Skips seeding when the table already has rows,
// so it is safe to run on every deploy.
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

	target := seed.DefaultFlights
	if len(os.Args) > 1 {
		target, err = strconv.Atoi(os.Args[1])
		if err != nil || target < 1 {
			log.Fatal().Str("arg", os.Args[1]).Msg("flight count must be a positive integer")
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM flights`).Scan(&existing); err != nil {
		log.Fatal().Err(err).Msg("count flights")
	}
	if existing > 0 {
		log.Info().Int("existing", existing).Msg("flights table already seeded, skipping")
		return
	}

	flights := seed.GenerateFlights(target)
	rows := make([][]interface{}, 0, len(flights))
	for _, f := range flights {
		rows = append(rows, []interface{}{f.ID, f.Origin, f.Destination, f.Date, f.Airline, f.PriceCents, f.Capacity})
	}

	copied, err := pool.CopyFrom(ctx,
		pgx.Identifier{"flights"},
		[]string{"id", "origin", "destination", "date", "airline", "price_cents", "capacity"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("copy flights")
	}
	log.Info().Int64("count", copied).Msg("seeded flight catalog")
}
