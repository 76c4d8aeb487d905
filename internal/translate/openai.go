package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/config"
	"github.com/agentic-research/faultcat/internal/metrics"
)

// OpenAI translates through the chat completions API.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	terms       []config.Term
}

// NewOpenAI builds a backend from the loaded configuration.
func NewOpenAI(cfg *config.Config, opts ...option.RequestOption) (*OpenAI, error) {
	if cfg.OpenAIKey == "" {
		return nil, ErrNoAPIKey
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithMaxRetries(cfg.Retries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAI{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		terms:       cfg.Glossary(),
	}, nil
}

// Translate implements Translator. Blank text is returned unchanged.
func (o *OpenAI) Translate(ctx context.Context, text string, src, dst api.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(src, dst, o.terms)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(o.temperature),
		MaxTokens:   openai.Int(o.maxTokens),
	})
	metrics.TranslationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TranslationsTotal.WithLabelValues(string(dst), "error").Inc()
		return "", fmt.Errorf("translate to %s: %w", dst, err)
	}
	if len(resp.Choices) == 0 {
		metrics.TranslationsTotal.WithLabelValues(string(dst), "empty").Inc()
		return "", fmt.Errorf("translate to %s: %w", dst, ErrEmptyResponse)
	}
	out := cleanup(resp.Choices[0].Message.Content)
	if out == "" {
		metrics.TranslationsTotal.WithLabelValues(string(dst), "empty").Inc()
		return "", fmt.Errorf("translate to %s: %w", dst, ErrEmptyResponse)
	}
	metrics.TranslationsTotal.WithLabelValues(string(dst), "ok").Inc()
	return out, nil
}

var quotePairs = [][2]string{{`"`, `"`}, {"«", "»"}, {"“", "”"}}

// cleanup trims whitespace and the quotes models sometimes wrap answers in.
func cleanup(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range quotePairs {
		if len(s) > len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}
