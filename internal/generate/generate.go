// Package generate wraps the configured LLM backends behind a single
// question-generation client. Backend selection happens once at startup:
// the budget secondary backend is preferred when its credential is present,
// with the primary backend as automatic failover.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/coachly-ai/coachly/internal/observe"
	"github.com/coachly-ai/coachly/internal/prompt"
	"github.com/coachly-ai/coachly/internal/resilience"
	"github.com/coachly-ai/coachly/pkg/provider/llm"
	"github.com/coachly-ai/coachly/pkg/provider/llm/anyllm"
	llmopenai "github.com/coachly-ai/coachly/pkg/provider/llm/openai"
)

// ErrUnavailable wraps transport-level generation failures. The HTTP layer
// maps it to 502 when the very first generation call of a request fails.
var ErrUnavailable = errors.New("generation backend unavailable")

// ErrEmptyCompletion is returned when a backend answers with no usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// defaultMaxTokens caps completion length. Sized for a batch of five
// questions at the 60-word limit.
const defaultMaxTokens = 512

// BackendConfig identifies one LLM backend.
type BackendConfig struct {
	// Name selects the backend: "openai", "groq", "anthropic", "gemini",
	// "mistral", "deepseek", or "ollama".
	Name string

	// APIKey is the backend credential. Local backends do not need one.
	APIKey string

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string

	// ChatModel and FastModel override the backend's stock tier models.
	ChatModel string
	FastModel string
}

// local reports whether the backend runs without a credential.
func (c BackendConfig) local() bool {
	switch strings.ToLower(c.Name) {
	case "ollama", "llamacpp", "llamafile":
		return true
	}
	return false
}

// BuildProvider constructs the process-wide generation provider from the
// primary and secondary backend configs.
//
// The secondary is preferred when configured and credentialed, with the
// primary as circuit-breaker-protected failover. A secondary whose
// credential is missing is skipped with a single log line; generation then
// runs on the primary alone.
func BuildProvider(primary, secondary BackendConfig, logger *slog.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	prim, err := buildBackend(primary)
	if err != nil {
		return nil, fmt.Errorf("generate: primary backend %q: %w", primary.Name, err)
	}

	if secondary.Name == "" {
		return prim, nil
	}
	if secondary.APIKey == "" && !secondary.local() {
		logger.Warn("secondary generation backend has no credential, using primary only",
			"secondary", secondary.Name, "primary", primary.Name)
		return prim, nil
	}

	sec, err := buildBackend(secondary)
	if err != nil {
		logger.Warn("secondary generation backend failed to initialise, using primary only",
			"secondary", secondary.Name, "error", err)
		return prim, nil
	}

	fb := resilience.NewLLMFallback(sec, secondary.Name, resilience.FallbackConfig{})
	fb.AddFallback(primary.Name, prim)
	logger.Info("generation backends configured",
		"preferred", secondary.Name, "fallback", primary.Name)
	return fb, nil
}

func buildBackend(cfg BackendConfig) (llm.Provider, error) {
	name := strings.ToLower(cfg.Name)
	if name == "" {
		return nil, errors.New("backend name is empty")
	}

	// The native OpenAI client carries richer options than the universal
	// adapter, so "openai" bypasses any-llm-go.
	if name == "openai" {
		var opts []llmopenai.Option
		if cfg.ChatModel != "" {
			opts = append(opts, llmopenai.WithChatModel(cfg.ChatModel))
		}
		if cfg.FastModel != "" {
			opts = append(opts, llmopenai.WithFastModel(cfg.FastModel))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(cfg.BaseURL))
		}
		return llmopenai.New(cfg.APIKey, opts...)
	}

	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	return anyllm.New(name, cfg.ChatModel, cfg.FastModel, opts...)
}

// Client issues generation calls against the selected provider and records
// their latency and outcome.
type Client struct {
	provider  llm.Provider
	metrics   *observe.Metrics
	maxTokens int
}

// Option configures a [Client].
type Option func(*Client)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxTokens overrides the completion token cap.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewClient wraps provider in a generation client.
func NewClient(provider llm.Provider, opts ...Option) *Client {
	c := &Client{
		provider:  provider,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Generate runs one completion for the assembled prompt and returns the
// trimmed text. Transport failures are wrapped in [ErrUnavailable].
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	return c.complete(ctx, llm.CompletionRequest{
		Messages:    p.Messages,
		Temperature: p.Temperature,
		MaxTokens:   c.maxTokens,
		Tier:        llm.TierChat,
	})
}

// Rephrase asks the fast tier to restate a question more clearly, for
// candidates who asked for clarification.
func (c *Client) Rephrase(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{
				Role: llm.RoleSystem,
				Content: "Rephrase the interview question you are given so it is easier to understand. " +
					"Keep the same intent and difficulty. Output only the rephrased question, ending with a question mark.",
			},
			{Role: llm.RoleUser, Content: question},
		},
		Temperature: 0.2,
		MaxTokens:   120,
		Tier:        llm.TierFast,
	})
}

func (c *Client) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	backend := c.provider.Capabilities().ModelID
	start := time.Now()

	resp, err := c.provider.Complete(ctx, req)

	c.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordGenerationCall(ctx, backend, "error")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var text string
	if resp != nil {
		text = strings.TrimSpace(resp.Content)
	}
	if text == "" {
		c.metrics.RecordGenerationCall(ctx, backend, "empty")
		return "", ErrEmptyCompletion
	}
	c.metrics.RecordGenerationCall(ctx, backend, "ok")
	return text, nil
}
