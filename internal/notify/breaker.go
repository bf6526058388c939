// internal/notify/breaker.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerNotifier wraps a Notifier with a circuit breaker so a dead mail
// server fails fast instead of stalling every reminder in a batch.
type BreakerNotifier struct {
	inner Notifier
	cb    *gobreaker.CircuitBreaker
}

func WithBreaker(inner Notifier) *BreakerNotifier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakerNotifier{inner: inner, cb: cb}
}

func (n *BreakerNotifier) Send(ctx context.Context, address, subject, body string) error {
	_, err := n.cb.Execute(func() (interface{}, error) {
		return nil, n.inner.Send(ctx, address, subject, body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return err
	}
	return nil
}
