package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc is called outside the breaker lock after every transition.
type StateChangeFunc func(from, to CircuitState)

// CircuitBreaker guards one provider. A nil breaker always allows.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int
	onChange         StateChangeFunc

	state     CircuitState
	failures  int
	openedAt  time.Time
	probing   int
	successes int
	now       func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	cfg := NormalizeCircuitBreakerConfig(CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	})

	return &CircuitBreaker{
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenMaxReq:   cfg.HalfOpenMaxReq,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

// NewCircuitBreakerFromConfig returns nil when the breaker is disabled.
func NewCircuitBreakerFromConfig(cfg CircuitBreakerConfig) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return NewCircuitBreaker(cfg.FailureThreshold, cfg.OpenTimeout, cfg.HalfOpenMaxReq)
}

// OnStateChange registers fn and returns the breaker for chaining.
func (b *CircuitBreaker) OnStateChange(fn StateChangeFunc) *CircuitBreaker {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
	return b
}

// Allow reports whether a call may go out. In half-open state only
// halfOpenMaxReq probes are admitted until they report back.
func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	from := b.state
	err := b.admit()
	to, hook := b.state, b.onChange
	b.mu.Unlock()

	notify(hook, from, to)
	return err
}

func (b *CircuitBreaker) admit() error {
	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.moveTo(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probing >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probing++
	}
	return nil
}

// Record feeds the outcome of one guarded call into the breaker.
func (b *CircuitBreaker) Record(failed bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	from := b.state
	if failed {
		b.fail()
	} else {
		b.succeed()
	}
	to, hook := b.state, b.onChange
	b.mu.Unlock()

	notify(hook, from, to)
}

func (b *CircuitBreaker) RecordSuccess() { b.Record(false) }

func (b *CircuitBreaker) RecordFailure() { b.Record(true) }

func (b *CircuitBreaker) succeed() {
	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probing > 0 {
			b.probing--
		}
		b.successes++
		if b.successes >= b.halfOpenMaxReq && b.probing == 0 {
			b.moveTo(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) fail() {
	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.moveTo(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.moveTo(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// moveTo resets the per-state counters. Callers hold mu.
func (b *CircuitBreaker) moveTo(state CircuitState) {
	b.state = state
	b.probing = 0
	b.successes = 0
	switch state {
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func notify(hook StateChangeFunc, from, to CircuitState) {
	if hook != nil && from != to {
		hook(from, to)
	}
}
