// Package retry decides whether a failed action attempt is retried within the
// current cycle and how long to wait before doing so.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/jonboulle/clockwork"
)

type Kind int

const (
	// Done means the attempt succeeded and no further attempt is needed.
	Done Kind = iota
	Retry
	GiveUp
)

func (k Kind) String() string {
	switch k {
	case Done:
		return "done"
	case Retry:
		return "retry"
	case GiveUp:
		return "give_up"
	default:
		return "unknown"
	}
}

type Decision struct {
	Kind  Kind
	After time.Duration
}

// ShouldRetry records a finished attempt on cfg and decides what happens next.
// A nil cfg never retries. Otherwise the attempt counter is incremented and a
// retry is allowed while it stays below MaxAttempts.
func ShouldRetry(cfg *models.RetryConfig, attemptFailed bool) Decision {
	if !attemptFailed {
		return Decision{Kind: Done}
	}

	if cfg == nil {
		return Decision{Kind: GiveUp}
	}

	if cfg.CurrentAttempts < math.MaxUint8 {
		cfg.CurrentAttempts++
	}

	if cfg.CurrentAttempts < cfg.MaxAttempts {
		return Decision{Kind: Retry, After: cfg.Delay()}
	}

	return Decision{Kind: GiveUp}
}

// MaxAttempts is the number of attempts an always-failing action receives.
func MaxAttempts(cfg *models.RetryConfig) int {
	if cfg == nil || cfg.MaxAttempts == 0 {
		return 1
	}

	return int(cfg.MaxAttempts)
}

// Waiter blocks until a retry is permitted.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// ClockWaiter waits on a clockwork clock and returns early when ctx is done.
type ClockWaiter struct {
	clock clockwork.Clock
}

func NewClockWaiter(clock clockwork.Clock) *ClockWaiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ClockWaiter{clock: clock}
}

func (w *ClockWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := w.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
