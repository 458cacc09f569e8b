package dispatch

import (
	"context"

	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

// Simulated is the dev and test dispatcher. Instead of delivering anything it
// logs the code, which is how local environments read it.
type Simulated struct {
	logg *logger.Logger
	err  error
}

// SimulatedOption customizes a Simulated dispatcher.
type SimulatedOption func(*Simulated)

// WithSendError makes every send fail with the given error.
func WithSendError(err error) SimulatedOption {
	return func(s *Simulated) {
		s.err = err
	}
}

// NewSimulated builds the logging dispatcher.
func NewSimulated(logg *logger.Logger, opts ...SimulatedOption) *Simulated {
	s := &Simulated{logg: logg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCode logs the delivery instead of performing one.
func (s *Simulated) SendCode(ctx context.Context, phone, code string) error {
	if s.err != nil {
		return s.err
	}
	if s.logg != nil {
		logCtx := s.logg.WithPhone(ctx, phone)
		logCtx = s.logg.WithField(logCtx, "code", code)
		s.logg.Info(logCtx, "dispatch.simulated_send")
	}
	return nil
}
