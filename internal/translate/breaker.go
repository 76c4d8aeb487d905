package translate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("translation circuit breaker is open")

// State of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes the breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before a trial call.
	Cooldown time.Duration
}

// DefaultBreakerConfig suits a sequential batch: five API failures in a row
// stop the run from waiting on every remaining entry.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second}
}

// Breaker rejects calls after repeated backend failures.
type Breaker struct {
	next   Translator
	config BreakerConfig
	now    func() time.Time

	mu           sync.Mutex
	state        State
	failureCount int
	openedAt     time.Time
}

// NewBreaker wraps next.
func NewBreaker(next Translator, cfg BreakerConfig) *Breaker {
	return &Breaker{next: next, config: cfg, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Translate implements Translator.
func (b *Breaker) Translate(ctx context.Context, text string, src, dst api.Language) (string, error) {
	b.mu.Lock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			b.mu.Unlock()
			return "", ErrCircuitOpen
		}
		b.state = StateHalfOpen
		log.Info().Msg("translation breaker half-open")
	}
	b.mu.Unlock()

	out, err := b.next.Translate(ctx, text, src, dst)

	b.mu.Lock()
	defer b.mu.Unlock()
	// Caller cancellation says nothing about backend health.
	if err != nil && ctx.Err() == nil {
		b.onFailure()
		return "", err
	}
	if err != nil {
		return "", err
	}
	b.failureCount = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
		log.Info().Msg("translation breaker closed")
	}
	return out, nil
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failureCount++
	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			log.Warn().Int("failure_count", b.failureCount).Msg("translation breaker opened")
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
		log.Warn().Msg("translation breaker reopened after trial failure")
	}
}
