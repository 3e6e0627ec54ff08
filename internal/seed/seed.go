package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
)

var airports = []string{
	"ATH", "LHR", "CDG", "FRA", "AMS", "MAD", "BCN", "MUC", "ZRH", "VIE",
	"ROM", "BER", "DUB", "CPH", "ARN", "OSL", "HEL", "IST", "PRG", "BUD",
}

var airlines = []string{
	"Hellas Air",
	"EuroSky",
	"Global Wings",
	"SkyLink",
	"Air Continental",
	"BlueJet",
}

const (
	DefaultFlights  = 100_000
	defaultCapacity = 100
	numDays         = 60
)

var baseDate = time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

// GenerateFlights produces n deterministic catalog entries. The fixed seed
// keeps ids and schedules reproducible across environments.
func GenerateFlights(n int) []domain.Flight {
	rng := rand.New(rand.NewSource(42))
	flights := make([]domain.Flight, 0, n)

	for i := 1; i <= n; i++ {
		origin := airports[rng.Intn(len(airports))]
		destination := airports[rng.Intn(len(airports))]
		for destination == origin {
			destination = airports[rng.Intn(len(airports))]
		}

		flights = append(flights, domain.Flight{
			ID:          fmt.Sprintf("FL-%06d", i),
			Origin:      origin,
			Destination: destination,
			Date:        baseDate.AddDate(0, 0, rng.Intn(numDays)),
			Airline:     airlines[rng.Intn(len(airlines))],
			PriceCents:  5000 + int64(rng.Intn(55001)),
			Capacity:    defaultCapacity,
		})
	}
	return flights
}
