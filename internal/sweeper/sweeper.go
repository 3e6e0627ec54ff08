package sweeper

import (
	"context"
	"time"

	"github.com/dkarpov/flightbooking/internal/domain"
	"github.com/rs/zerolog/log"
)

type Engine interface {
	ExpireHeldBookings(ctx context.Context) ([]domain.Booking, error)
}

// Sweeper periodically reclaims seats from holds nobody confirmed or
// cancelled in time. It shares the engine handle with the request path, so
// there is no separate inventory state to keep in sync.
type Sweeper struct {
	engine   Engine
	interval time.Duration
}

func New(engine Engine, interval time.Duration) *Sweeper {
	return &Sweeper{engine: engine, interval: interval}
}

// Run sweeps on the configured interval until ctx is cancelled. A failed
// pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.engine.ExpireHeldBookings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("expiration sweep failed")
		return
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("expired held bookings")
	}
}
