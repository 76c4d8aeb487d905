// Package translate turns catalog descriptions into another language through
// an LLM backend, with caching and a circuit breaker around it.
package translate

import (
	"context"
	"errors"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/config"
)

// ErrNoAPIKey is returned when a translating command runs without a key.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("empty translation")

// Translator translates one description.
type Translator interface {
	Translate(ctx context.Context, text string, src, dst api.Language) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text string, src, dst api.Language) (string, error)

// Translate implements Translator.
func (f Func) Translate(ctx context.Context, text string, src, dst api.Language) (string, error) {
	return f(ctx, text, src, dst)
}

// New assembles the production chain: an LRU cache in front of a circuit
// breaker in front of the OpenAI backend.
func New(cfg *config.Config) (*Cached, error) {
	backend, err := NewOpenAI(cfg)
	if err != nil {
		return nil, err
	}
	return NewCached(NewBreaker(backend, DefaultBreakerConfig()), cfg.CacheSize)
}
