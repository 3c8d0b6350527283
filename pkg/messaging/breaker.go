package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/abgdnv/catalog/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// BreakerPublisher guards a Publisher with a circuit breaker so an unavailable
// broker is not hit on every write once it has failed repeatedly.
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next with a circuit breaker configured from cfg.
// Context cancellation is not counted as a broker failure.
func NewBreakerPublisher(next Publisher, cfg config.CircuitBreakerConfig, logger *slog.Logger) *BreakerPublisher {
	st := gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerPublisher{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

// Publish forwards the event unless the breaker is open, in which case gobreaker.ErrOpenState is returned.
func (p *BreakerPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, event)
	})
	return err
}

// State reports the current breaker state.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.cb.State()
}
