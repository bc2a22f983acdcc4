package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrSendFailed is returned once every attempt has failed.
var ErrSendFailed = errors.New("could not send email")

// Sender delivers messages with a fixed number of attempts.
type Sender struct {
	transport Transport
	retries   int
	delay     time.Duration
	logger    *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithRetries sets the total number of attempts (default 3).
func WithRetries(n int) Option {
	return func(s *Sender) {
		s.retries = n
	}
}

// WithRetryDelay sets the wait between attempts (default 2s).
func WithRetryDelay(d time.Duration) Option {
	return func(s *Sender) {
		s.delay = d
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) {
		s.logger = l
	}
}

// NewSender creates a Sender that delivers through t.
func NewSender(t Transport, opts ...Option) *Sender {
	s := &Sender{
		transport: t,
		retries:   3,
		delay:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retries < 1 {
		s.retries = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Send encodes m and delivers it, retrying failed attempts. Every failed
// attempt is logged. Waiting between attempts stops when ctx is done.
func (s *Sender) Send(ctx context.Context, m Message) error {
	data, err := m.Bytes()
	if err != nil {
		return fmt.Errorf("building message: %w", err)
	}
	from, to := m.Sender(), m.Recipients()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= s.retries; attempt++ {
		if attempt > 1 && s.delay > 0 {
			t := time.NewTimer(s.delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%w: %w", ErrSendFailed, ctx.Err())
			case <-t.C:
			}
		}

		attempts++
		lastErr = s.transport.Deliver(ctx, from, to, data)
		if lastErr == nil {
			s.logger.Info("email sent successfully", "attempt", attempt, "to", to)
			return nil
		}
		s.logger.Error("error sending email", "attempt", attempt, "error", lastErr)

		if ctx.Err() != nil {
			break
		}
	}

	s.logger.Error("maximum retry attempts reached, could not send email", "attempts", attempts)
	return fmt.Errorf("%w after %d attempt(s): %w", ErrSendFailed, attempts, lastErr)
}
