package processor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mozpaylabs/mozpay-backend/internal/checkout"
	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
)

// Simulated stands in for a real payment gateway. It waits the configured
// delay and approves everything unless a failure hook is installed.
type Simulated struct {
	delay time.Duration
	clock checkout.Clock

	// failFunc, when set, is consulted per request. A non-nil return fails
	// the payment with that error.
	failFunc func(req checkout.Request) error
}

// Option customizes a Simulated processor.
type Option func(*Simulated)

// WithFailFunc installs a per-request failure hook.
func WithFailFunc(fn func(req checkout.Request) error) Option {
	return func(s *Simulated) {
		s.failFunc = fn
	}
}

// NewSimulated builds the simulated gateway.
func NewSimulated(delay time.Duration, clock checkout.Clock, opts ...Option) *Simulated {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	s := &Simulated{delay: delay, clock: clock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process waits out the gateway delay and returns an approved result. A
// cancelled context aborts immediately with the context error.
func (s *Simulated) Process(ctx context.Context, req checkout.Request) (checkout.Result, error) {
	select {
	case <-ctx.Done():
		return checkout.Result{}, ctx.Err()
	case <-s.clock.After(s.delay):
	}

	if s.failFunc != nil {
		if err := s.failFunc(req); err != nil {
			return checkout.Result{}, err
		}
	}

	return checkout.Result{
		Status:        enums.PaymentStatusCompleted,
		TransactionID: newTransactionID(),
		Amount:        req.Amount,
		Timestamp:     s.clock.Now(),
	}, nil
}

func newTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TX-" + strings.ToUpper(raw[:12])
}
