package mail

import (
	"context"
	"sync"
	"time"
)

// Observer receives the outcome of every dispatch attempted through a
// ProtectedSender. *observability.Prom implements it.
type Observer interface {
	ObserveMail(result string, elapsed time.Duration)
}

// ProtectedConfig tunes a ProtectedSender. Zero fields take the defaults
// applied by NewProtectedSender.
type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// ProtectedSender wraps a Sender with a per-send timeout and a circuit
// breaker.
type ProtectedSender struct {
	inner    Sender
	cfg      ProtectedConfig
	observer Observer
	now      func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

// NewProtectedSender wraps inner. Defaults: 10s timeout, opens after 3
// consecutive failures, 30s cooldown, 1 half-open trial call. observer may be nil.
func NewProtectedSender(inner Sender, cfg ProtectedConfig, observer Observer) *ProtectedSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedSender{
		inner:    inner,
		cfg:      cfg,
		observer: observer,
		now:      time.Now,
		state:    stateClosed,
	}
}

// Send delivers msg through the inner sender within the configured timeout.
// It returns ErrCircuitOpen without calling the inner sender while the
// breaker is open.
func (s *ProtectedSender) Send(ctx context.Context, msg Message) error {
	start := s.now()

	if !s.allowRequest() {
		s.observe("circuit_open", start)
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	err := s.inner.Send(sendCtx, msg)
	s.afterRequest(err)

	if err != nil {
		s.observe("failed", start)
		return err
	}
	s.observe("sent", start)
	return nil
}

func (s *ProtectedSender) observe(result string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveMail(result, s.now().Sub(start))
	}
}

func (s *ProtectedSender) allowRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateOpen:
		if s.now().Sub(s.openedAt) < s.cfg.Cooldown {
			return false
		}
		s.state = stateHalfOpen
		s.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if s.halfOpenInFlight >= s.cfg.HalfOpenMaxCalls {
			return false
		}
		s.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (s *ProtectedSender) afterRequest(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateHalfOpen && s.halfOpenInFlight > 0 {
		s.halfOpenInFlight--
	}

	if err == nil {
		s.consecutiveFailures = 0
		s.state = stateClosed
		return
	}

	s.consecutiveFailures++

	// a failed trial call reopens immediately
	if s.state == stateHalfOpen || s.consecutiveFailures >= s.cfg.FailureThreshold {
		s.state = stateOpen
		s.openedAt = s.now()
	}
}
