// Package resilience isolates advisory side effects (notifications, metrics)
// behind per-effect circuit breakers so a failing dependency is skipped
// instead of being called on every transaction.
//
// Breakers never retry. A call either runs once or is rejected while the
// breaker is open.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Effect names used by checkout.
const (
	EffectNotification = "notification"
	EffectMetrics      = "metrics"
)

// BreakerConfig defines the breaker behavior.
//
// MaxRequests is the number of trial calls allowed while half-open.
// Interval is the cyclic period for clearing counts while closed.
// Timeout is how long the breaker stays open before going half-open.
// FailureRatio trips the breaker once MinRequests calls have been seen.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Breakers maintains one breaker per effect.
type Breakers struct {
	config   BreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.RWMutex

	onStateChange func(effect string, from, to State)
}

func NewBreakers(config BreakerConfig) *Breakers {
	return &Breakers{
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// OnStateChange registers a callback for transitions. Register it before the
// first Run; breakers created earlier keep the old callback.
func (b *Breakers) OnStateChange(fn func(effect string, from, to State)) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

func (b *Breakers) breaker(effect string) *gobreaker.CircuitBreaker {
	b.mu.RLock()
	cb, exists := b.breakers[effect]
	b.mu.RUnlock()

	if exists {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, exists = b.breakers[effect]; exists {
		return cb
	}

	onChange := b.onStateChange
	settings := gobreaker.Settings{
		Name:        effect,
		MaxRequests: b.config.MaxRequests,
		Interval:    b.config.Interval,
		Timeout:     b.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.config.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= b.config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if onChange != nil {
				onChange(name, toState(from), toState(to))
			}
		},
	}

	cb = gobreaker.NewCircuitBreaker(settings)
	b.breakers[effect] = cb
	return cb
}

// Run calls fn through the effect's breaker. While the breaker is open fn is
// not called and the returned error satisfies IsRejected.
func (b *Breakers) Run(effect string, fn func() error) error {
	_, err := b.breaker(effect).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (b *Breakers) State(effect string) State {
	return toState(b.breaker(effect).State())
}

// IsRejected reports whether err came from an open or saturated breaker
// rather than from the wrapped call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func toState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
